package parallel

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Task outcomes recorded by Metrics.
const (
	StatusDone     = "done"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
	StatusDeferred = "deferred"
)

// Metrics counts task outcomes and durations on a private registry so that
// several runners in one process do not collide.
type Metrics struct {
	registry *prometheus.Registry
	tasks    *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics creates the task counters.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		tasks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nestcv_tasks_total",
			Help: "Evaluation tasks by final status",
		}, []string{"status"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "nestcv_task_duration_seconds",
			Help:    "Wall time of executed evaluation tasks",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
	}
}

func (m *Metrics) observe(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(status).Inc()
	if status == StatusDone || status == StatusFailed {
		m.duration.Observe(d.Seconds())
	}
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current values in the text exposition format,
// suitable for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
