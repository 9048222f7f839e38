// Package metrics bundles the Prometheus collectors for the scrape core.
// All methods are nil-safe so callers can run without metrics wired.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors on a dedicated registry.
type Metrics struct {
	Registry          *prometheus.Registry
	FetchesTotal      *prometheus.CounterVec
	FetchDuration     *prometheus.HistogramVec
	RenderEscalations *prometheus.CounterVec
	RetriesTotal      *prometheus.CounterVec
	RunsTotal         prometheus.Counter
	RunDuration       prometheus.Histogram
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	fetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricescope_fetches_total",
			Help: "Fetch attempts by source, path, and outcome.",
		},
		[]string{"source", "via", "outcome"},
	)
	fetchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricescope_fetch_duration_seconds",
			Help:    "Fetch attempt latency by source.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)
	escalations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricescope_render_escalations_total",
			Help: "Static fetches escalated to a browser render, by source.",
		},
		[]string{"source"},
	)
	retries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricescope_retries_total",
			Help: "Retry attempts scheduled, by source.",
		},
		[]string{"source"},
	)
	runs := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricescope_runs_total",
			Help: "Orchestrator runs started.",
		},
	)
	runDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricescope_run_duration_seconds",
			Help:    "End-to-end orchestrator run latency.",
			Buckets: prometheus.DefBuckets,
		},
	)

	registry.MustRegister(fetches, fetchDuration, escalations, retries, runs, runDuration)

	return &Metrics{
		Registry:          registry,
		FetchesTotal:      fetches,
		FetchDuration:     fetchDuration,
		RenderEscalations: escalations,
		RetriesTotal:      retries,
		RunsTotal:         runs,
		RunDuration:       runDuration,
	}
}

// IncFetch increments the fetch counter for a source, path, and outcome.
func (m *Metrics) IncFetch(source, via, outcome string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(source, via, outcome).Inc()
}

// ObserveFetch records one fetch attempt's duration.
func (m *Metrics) ObserveFetch(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

// IncEscalation increments the render-escalation counter.
func (m *Metrics) IncEscalation(source string) {
	if m == nil {
		return
	}
	m.RenderEscalations.WithLabelValues(source).Inc()
}

// IncRetry increments the retry counter.
func (m *Metrics) IncRetry(source string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(source).Inc()
}

// ObserveRun records one orchestrator run.
func (m *Metrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.Inc()
	m.RunDuration.Observe(d.Seconds())
}
