package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/us-heatmaps/internal/adapter/csvfile"
	"github.com/couchcryptid/us-heatmaps/internal/adapter/geojson"
	httpadapter "github.com/couchcryptid/us-heatmaps/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/us-heatmaps/internal/adapter/kafka"
	"github.com/couchcryptid/us-heatmaps/internal/config"
	"github.com/couchcryptid/us-heatmaps/internal/figure"
	"github.com/couchcryptid/us-heatmaps/internal/observability"
	"github.com/couchcryptid/us-heatmaps/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source := csvfile.NewSource(csvfile.Paths{
		Observations: cfg.CovidCSVPath,
		Population:   cfg.PopulationCSVPath,
	}, logger)
	aggregator := pipeline.NewAggregator(cfg.MinYear, cfg.MaxYear, logger, metrics)

	// Snapshot publishing is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var (
		loader pipeline.SnapshotLoader
		writer *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		loader = writer
		logger.Info("snapshot publishing enabled", "topic", cfg.KafkaSinkTopic, "batch_size", cfg.BatchSize)
	} else {
		logger.Info("snapshot publishing disabled")
	}

	p := pipeline.New(source, aggregator, loader, logger, metrics, cfg.BatchSize)

	ds, err := p.Load(ctx)
	if err != nil {
		logger.Error("failed to load datasets", "error", err)
		os.Exit(1)
	}

	deps := httpadapter.Dependencies{
		Tables:  ds,
		Ready:   p,
		Metrics: metrics,
	}

	// County geometry is proxied through the service unless GEOJSON_PROXY_ENABLED=false.
	geometryURL := cfg.CountyGeoJSONURL
	if cfg.GeoJSONProxyEnabled {
		client := geojson.NewClient(cfg.GeoJSONTimeout, logger)
		deps.Geometry = geojson.NewCachedFetcher(client, cfg.GeoJSONCacheTTL, metrics, logger)
		deps.GeometryURL = cfg.CountyGeoJSONURL
		geometryURL = httpadapter.GeometryPath
		logger.Info("geometry proxy enabled", "url", cfg.CountyGeoJSONURL, "cache_ttl", cfg.GeoJSONCacheTTL)
	}

	catalog := figure.NewCatalog(ds, figure.Options{
		StateCasesClip:   cfg.StateCasesClip,
		CountyCasesClip:  cfg.CountyCasesClip,
		CountyGeoJSONURL: geometryURL,
	})
	for _, m := range figure.Modes() {
		if fig, err := catalog.Select(m); err == nil && fig.NoData() {
			logger.Warn("figure has no data", "mode", m)
		}
	}
	deps.Figures = catalog

	srv := httpadapter.NewServer(cfg.HTTPAddr, deps, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Publish the snapshot in the background; the dashboard serves regardless.
	if loader != nil {
		go func() {
			if err := p.Publish(ctx, ds); err != nil && ctx.Err() == nil {
				logger.Error("snapshot publish failed", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
