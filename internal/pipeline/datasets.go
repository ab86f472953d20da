package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/us-heatmaps/internal/domain"
)

// Source reads the raw observation and population rows.
type Source interface {
	Observations(ctx context.Context) ([]domain.Observation, domain.ReadStats, error)
	Population(ctx context.Context) ([]domain.PopulationRecord, domain.ReadStats, error)
}

// Datasets is the immutable result of one load. It is built once at start
// and handed to consumers explicitly.
type Datasets struct {
	stateDaily  []domain.StateDaily
	countyDaily []domain.CountyDaily
	population  []domain.PopulationRecord
	report      domain.LoadReport
	loadedAt    time.Time
}

// NewDatasets assembles Datasets from already built tables.
func NewDatasets(state []domain.StateDaily, county []domain.CountyDaily, population []domain.PopulationRecord) *Datasets {
	return &Datasets{
		stateDaily:  state,
		countyDaily: county,
		population:  population,
		loadedAt:    domain.Now(),
	}
}

// StateDaily returns the per-state daily totals in (date, state) order.
func (d *Datasets) StateDaily() []domain.StateDaily { return d.stateDaily }

// CountyDaily returns the per-county daily totals in (date, county) order.
func (d *Datasets) CountyDaily() []domain.CountyDaily { return d.countyDaily }

// Population returns the population records in file order.
func (d *Datasets) Population() []domain.PopulationRecord { return d.population }

// Report returns the load counters.
func (d *Datasets) Report() domain.LoadReport { return d.report }

// LoadedAt returns when the datasets were built.
func (d *Datasets) LoadedAt() time.Time { return d.loadedAt }

// LoadDatasets reads both source files and builds the derived tables.
// Malformed rows and unknown geography are counted, never fatal; a missing
// file or column is.
func LoadDatasets(ctx context.Context, src Source, agg *Aggregator) (*Datasets, error) {
	obs, obsStats, err := src.Observations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}
	agg.metrics.RowsRead.WithLabelValues("observations").Add(float64(obsStats.Read))
	agg.metrics.RowsRejected.WithLabelValues("observations", "malformed").Add(float64(obsStats.Rejected))

	pop, popStats, err := src.Population(ctx)
	if err != nil {
		return nil, fmt.Errorf("load population: %w", err)
	}
	agg.metrics.RowsRead.WithLabelValues("population").Add(float64(popStats.Read))
	agg.metrics.RowsRejected.WithLabelValues("population", "malformed").Add(float64(popStats.Rejected))
	agg.metrics.TableRows.WithLabelValues("population").Set(float64(len(pop)))

	tables := agg.Aggregate(obs)

	ds := NewDatasets(tables.State, tables.County, pop)
	ds.report = domain.LoadReport{
		ObservationsRead:     obsStats.Read,
		ObservationsRejected: obsStats.Rejected,
		OutOfRange:           tables.OutOfRange,
		UnknownState:         tables.UnknownState,
		UnknownCounty:        tables.UnknownCounty,
		PopulationRead:       popStats.Read,
		PopulationRejected:   popStats.Rejected,
	}
	return ds, nil
}
