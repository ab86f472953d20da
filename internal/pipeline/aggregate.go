package pipeline

import (
	"log/slog"
	"time"

	"github.com/couchcryptid/us-heatmaps/internal/domain"
	"github.com/couchcryptid/us-heatmaps/internal/observability"
)

// Tables holds the two derived tables and how many observations each left out.
type Tables struct {
	State  []domain.StateDaily
	County []domain.CountyDaily

	OutOfRange    int
	UnknownState  int
	UnknownCounty int
}

// Aggregator builds the derived tables from loaded observations.
type Aggregator struct {
	minYear int
	maxYear int
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewAggregator creates an Aggregator keeping observations dated within
// [minYear, maxYear].
func NewAggregator(minYear, maxYear int, logger *slog.Logger, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{
		minYear: minYear,
		maxYear: maxYear,
		logger:  logger,
		metrics: metrics,
	}
}

// Aggregate filters observations to the configured years and builds the
// state and county tables. Unknown geography is dropped from the affected
// table only and reported once as a summary.
func (a *Aggregator) Aggregate(rows []domain.Observation) Tables {
	start := time.Now()

	inRange := domain.FilterYearRange(rows, a.minYear, a.maxYear)
	state, unknownState := domain.BuildStateDaily(inRange)
	county, unknownCounty := domain.BuildCountyDaily(inRange)

	t := Tables{
		State:         state,
		County:        county,
		OutOfRange:    len(rows) - len(inRange),
		UnknownState:  unknownState,
		UnknownCounty: unknownCounty,
	}

	a.metrics.AggregationDuration.Observe(time.Since(start).Seconds())
	a.metrics.RowsDropped.WithLabelValues("all", "out_of_range").Add(float64(t.OutOfRange))
	a.metrics.RowsDropped.WithLabelValues("state", "unknown_state").Add(float64(t.UnknownState))
	a.metrics.RowsDropped.WithLabelValues("county", "unknown_county").Add(float64(t.UnknownCounty))
	a.metrics.TableRows.WithLabelValues("state").Set(float64(len(state)))
	a.metrics.TableRows.WithLabelValues("county").Set(float64(len(county)))

	if t.UnknownState > 0 || t.UnknownCounty > 0 {
		a.logger.Info("observations with unknown geography dropped",
			"unknown_state", t.UnknownState,
			"unknown_county", t.UnknownCounty,
		)
	}
	a.logger.Debug("tables aggregated",
		"observations", len(rows),
		"out_of_range", t.OutOfRange,
		"state_rows", len(state),
		"county_rows", len(county),
		"duration", time.Since(start),
	)

	return t
}
