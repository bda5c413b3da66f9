package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quake_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for catalog runs.
type Metrics struct {
	PipelineRunning prometheus.Gauge
	RunsTotal       *prometheus.CounterVec // labels: outcome={success,invalid_spec,network_error,empty,io_error,cancelled,error}
	RunDuration     prometheus.Histogram

	// Download metrics.
	DownloadsTotal   *prometheus.CounterVec // labels: outcome={success,http,connectivity,other}
	DownloadRetries  prometheus.Counter
	DownloadDuration prometheus.Histogram

	// Normalization metrics.
	RecordsKept    prometheus.Counter
	RecordsDropped prometheus.Counter
	CatalogSize    prometheus.Histogram

	RecordsPublished prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates all pipeline metrics and registers them with reg.
// One-shot commands pass a private registry so nothing is exported.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.PipelineRunning,
		m.RunsTotal,
		m.RunDuration,
		m.DownloadsTotal,
		m.DownloadRetries,
		m.DownloadDuration,
		m.RecordsKept,
		m.RecordsDropped,
		m.CatalogSize,
		m.RecordsPublished,
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
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a catalog run is in flight, 0 otherwise.",
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed catalog runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a complete catalog run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		DownloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Upstream downloads by final outcome.",
		}, []string{"outcome"}),
		DownloadRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_retries_total",
			Help:      "Downloads retried after a first failure.",
		}),
		DownloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "download_duration_seconds",
			Help:      "Duration of a single upstream download attempt.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		RecordsKept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_kept_total",
			Help:      "Catalog rows that passed validation.",
		}),
		RecordsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dropped_total",
			Help:      "Catalog rows rejected by validation.",
		}),
		CatalogSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_records",
			Help:      "Records in each normalized catalog.",
			Buckets:   prometheus.ExponentialBuckets(10, 10, 6),
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Catalog records published downstream.",
		}),
	}
}
