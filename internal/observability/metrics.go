package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "heatmap"

// Metrics holds the Prometheus counters, histograms, and gauges for loading,
// aggregation and figure serving.
type Metrics struct {
	RowsRead     *prometheus.CounterVec // labels: file={observations,population}
	RowsRejected *prometheus.CounterVec // labels: file, reason={malformed}
	RowsDropped  *prometheus.CounterVec // labels: table={state,county,all}, reason={unknown_state,unknown_county,out_of_range}
	TableRows    *prometheus.GaugeVec   // labels: table={state,county,population}

	AggregationDuration prometheus.Histogram
	DatasetsReady       prometheus.Gauge

	FigureRequests *prometheus.CounterVec // labels: mode, outcome={ok,unknown}

	// Boundary geometry proxy metrics.
	GeoJSONFetches *prometheus.CounterVec // labels: outcome={success,error}
	GeoJSONCache   *prometheus.CounterVec // labels: result={hit,miss}

	SnapshotMessages *prometheus.CounterVec // labels: table={state,county}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.RowsRead,
		m.RowsRejected,
		m.RowsDropped,
		m.TableRows,
		m.AggregationDuration,
		m.DatasetsReady,
		m.FigureRequests,
		m.GeoJSONFetches,
		m.GeoJSONCache,
		m.SnapshotMessages,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Data rows read from source files.",
		}, []string{"file"}),
		RowsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_rejected_total",
			Help:      "Source rows rejected as malformed.",
		}, []string{"file", "reason"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Observations left out of a derived table.",
		}, []string{"table", "reason"}),
		TableRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "table_rows",
			Help:      "Rows held in each in-memory table.",
		}, []string{"table"}),
		AggregationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of building the derived tables.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		DatasetsReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "datasets_ready",
			Help:      "1 once the datasets are loaded, 0 before.",
		}),
		FigureRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "figure_requests_total",
			Help:      "Figure selections by mode and outcome.",
		}, []string{"mode", "outcome"}),
		GeoJSONFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geojson_fetch_total",
			Help:      "Remote boundary geometry fetches by outcome.",
		}, []string{"outcome"}),
		GeoJSONCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geojson_cache_total",
			Help:      "Boundary geometry cache lookups by result.",
		}, []string{"result"}),
		SnapshotMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_messages_total",
			Help:      "Derived table rows published to the snapshot topic.",
		}, []string{"table"}),
	}
}
