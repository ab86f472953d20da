package figure

import (
	"fmt"

	"github.com/couchcryptid/us-heatmaps/internal/domain"
)

// Datasets is the read side of the loaded tables.
type Datasets interface {
	StateDaily() []domain.StateDaily
	CountyDaily() []domain.CountyDaily
	Population() []domain.PopulationRecord
}

// Options controls figure styling.
type Options struct {
	StateCasesClip   int64
	CountyCasesClip  int64
	CountyGeoJSONURL string
}

// Catalog holds the three figures, built once from the datasets.
type Catalog struct {
	state      *Figure
	county     *Figure
	population *Figure
}

// NewCatalog precomputes every figure.
func NewCatalog(ds Datasets, opts Options) *Catalog {
	return &Catalog{
		state:      StateFigure(ds.StateDaily(), opts.StateCasesClip),
		county:     CountyFigure(ds.CountyDaily(), opts.CountyCasesClip, opts.CountyGeoJSONURL),
		population: PopulationFigure(ds.Population()),
	}
}

// Select returns the precomputed figure for mode.
func (c *Catalog) Select(mode Mode) (*Figure, error) {
	switch mode {
	case ModeCovidState:
		return c.state, nil
	case ModeCovidCounty:
		return c.county, nil
	case ModePopulation:
		return c.population, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}
