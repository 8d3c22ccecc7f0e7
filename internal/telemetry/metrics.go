package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the recompute instruments on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	runs           *prometheus.CounterVec
	runDuration    prometheus.Histogram
	sprintFailures *prometheus.CounterVec
	rollups        *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "delivery_recompute_runs_total",
			Help: "Recompute passes by outcome (completed, skipped).",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "delivery_recompute_duration_seconds",
			Help:    "Wall time of a full recompute pass.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		sprintFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "delivery_sprint_failures_total",
			Help: "Sprints skipped during a recompute pass by reason.",
		}, []string{"reason"}),
		rollups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "delivery_rollups_written_total",
			Help: "Rollup rows appended by kind (sprint, developer).",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(m.runs, m.runDuration, m.sprintFailures, m.rollups)
	return m
}

// Handler serves the /metrics scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RunCompleted(d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues("completed").Inc()
	m.runDuration.Observe(d.Seconds())
}

func (m *Metrics) RunSkipped() {
	if m == nil {
		return
	}
	m.runs.WithLabelValues("skipped").Inc()
}

func (m *Metrics) SprintFailed(reason string) {
	if m == nil {
		return
	}
	m.sprintFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) RollupsWritten(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rollups.WithLabelValues(kind).Add(float64(n))
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
