package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/us-heatmaps/internal/domain"
	"github.com/couchcryptid/us-heatmaps/internal/observability"
)

// SnapshotLoader writes derived table rows to a downstream destination.
type SnapshotLoader interface {
	LoadStateDaily(ctx context.Context, rows []domain.StateDaily) error
	LoadCountyDaily(ctx context.Context, rows []domain.CountyDaily) error
}

const maxPublishAttempts = 5

// Pipeline orchestrates extract (source), transform (aggregator) and the
// optional snapshot load. Load runs once before serving; Publish follows
// in the background.
type Pipeline struct {
	source     Source
	aggregator *Aggregator
	loader     SnapshotLoader
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool
	batchSize  int
}

// New creates a Pipeline. A nil loader disables snapshot publishing.
func New(src Source, agg *Aggregator, loader SnapshotLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Pipeline{
		source:     src,
		aggregator: agg,
		loader:     loader,
		logger:     logger,
		metrics:    metrics,
		batchSize:  batchSize,
	}
}

// CheckReadiness returns nil once the datasets are loaded, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("datasets have not been loaded yet")
	}
	return nil
}

// Load reads the sources and builds the datasets. It marks the pipeline
// ready on success.
func (p *Pipeline) Load(ctx context.Context) (*Datasets, error) {
	start := time.Now()

	ds, err := LoadDatasets(ctx, p.source, p.aggregator)
	if err != nil {
		return nil, err
	}

	p.ready.Store(true)
	p.metrics.DatasetsReady.Set(1)

	r := ds.Report()
	p.logger.Info("datasets loaded",
		"observations_read", r.ObservationsRead,
		"observations_rejected", r.ObservationsRejected,
		"out_of_range", r.OutOfRange,
		"state_rows", len(ds.StateDaily()),
		"county_rows", len(ds.CountyDaily()),
		"population_rows", len(ds.Population()),
		"loaded_at", ds.LoadedAt(),
		"duration", time.Since(start),
	)
	return ds, nil
}

// Publish writes both derived tables to the snapshot loader in batches,
// retrying each batch with exponential backoff. It is a no-op without a
// loader. Callers run it after Load; serving never waits on it.
func (p *Pipeline) Publish(ctx context.Context, ds *Datasets) error {
	if p.loader == nil {
		return nil
	}
	p.logger.Info("snapshot publish started", "batch_size", p.batchSize)

	state := ds.StateDaily()
	for i := 0; i < len(state); i += p.batchSize {
		batch := state[i:min(i+p.batchSize, len(state))]
		if err := p.withRetry(ctx, func() error { return p.loader.LoadStateDaily(ctx, batch) }); err != nil {
			return fmt.Errorf("publish state rows: %w", err)
		}
		p.metrics.SnapshotMessages.WithLabelValues("state").Add(float64(len(batch)))
	}

	county := ds.CountyDaily()
	for i := 0; i < len(county); i += p.batchSize {
		batch := county[i:min(i+p.batchSize, len(county))]
		if err := p.withRetry(ctx, func() error { return p.loader.LoadCountyDaily(ctx, batch) }); err != nil {
			return fmt.Errorf("publish county rows: %w", err)
		}
		p.metrics.SnapshotMessages.WithLabelValues("county").Add(float64(len(batch)))
	}

	p.logger.Info("snapshot published", "state_rows", len(state), "county_rows", len(county))
	return nil
}

// withRetry runs fn until it succeeds, the context ends, or the attempts
// run out. Backoff starts at 200ms, doubles each retry, and caps at 5s.
func (p *Pipeline) withRetry(ctx context.Context, fn func() error) error {
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	var err error
	for attempt := 1; attempt <= maxPublishAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil || attempt == maxPublishAttempts {
			break
		}
		p.logger.Warn("snapshot batch failed, retrying", "error", err, "attempt", attempt, "backoff", backoff)
		if !sleepWithContext(ctx, backoff) {
			break
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
