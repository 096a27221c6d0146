// Package metrics exposes the worker's process-level counters via
// Prometheus client_golang, mirroring the ecosystem's standard
// instrumentation pattern rather than a hand-rolled collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the counters and gauges the admin server publishes
// at /metrics, alongside the counters the shared-state store already
// tracks (num_resized, resize_errors, ...). These are process-local
// observability signals, not a replacement for the shared-state schema.
type Metrics struct {
	JobsDispatched prometheus.Counter
	JobsDiscarded  prometheus.Counter
	FetchErrors    *prometheus.CounterVec
	ProcessorsInUse prometheus.Gauge
	ProcessDuration prometheus.Histogram
}

// New registers and returns the worker's metric set against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		JobsDispatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "image_worker_jobs_dispatched_total",
			Help: "Total number of jobs submitted to the image processor.",
		}),
		JobsDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "image_worker_jobs_discarded_total",
			Help: "Total number of malformed bus messages discarded without processing.",
		}),
		FetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "image_worker_fetch_errors_total",
			Help: "Total fetch errors by origin and HTTP status.",
		}, []string{"origin", "status"}),
		ProcessorsInUse: factory.NewGauge(prometheus.GaugeOpts{
			Name: "image_worker_processors_in_use",
			Help: "Number of concurrency permits currently held.",
		}),
		ProcessDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "image_worker_process_duration_seconds",
			Help:    "Time spent in one fetch-decode-resize-persist cycle.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
