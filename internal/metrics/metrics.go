package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	guardDecisions *prometheus.CounterVec
	fetches        *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	staleDropped   prometheus.Counter
	submissions    *prometheus.CounterVec
	activeDevices  prometheus.Gauge
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "greenbite",
			Name:      "guard_decisions_total",
			Help:      "Session guard decisions by outcome.",
		}, []string{"state"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "greenbite",
			Name:      "listing_fetches_total",
			Help:      "Listing fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "greenbite",
			Name:      "listing_fetch_duration_seconds",
			Help:      "Listing fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		staleDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "greenbite",
			Name:      "listing_fetch_stale_dropped_total",
			Help:      "Fetch resolutions discarded because a newer fetch was issued.",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "greenbite",
			Name:      "submissions_total",
			Help:      "Form submissions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		activeDevices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "greenbite",
			Name:      "marketplace_active_devices",
			Help:      "Devices holding a live marketplace store.",
		}),
	}

	reg.MustRegister(
		m.guardDecisions,
		m.fetches,
		m.fetchDuration,
		m.staleDropped,
		m.submissions,
		m.activeDevices,
	)
	return m
}

// Handler exposes the registry for scraping
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) GuardDecision(state string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(state).Inc()
}

func (m *Metrics) Fetch(source, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(source, outcome).Inc()
	m.fetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (m *Metrics) StaleDropped() {
	if m == nil {
		return
	}
	m.staleDropped.Inc()
}

// StaleCounter exposes the stale-drop counter for inspection
func (m *Metrics) StaleCounter() prometheus.Counter {
	return m.staleDropped
}

func (m *Metrics) Submission(kind, outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ActiveDevices(n int) {
	if m == nil {
		return
	}
	m.activeDevices.Set(float64(n))
}
