package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the dashboard and the offline
// cache proxy. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Cycles           *prometheus.CounterVec
	CycleDuration    prometheus.Histogram
	StaleCycles      prometheus.Counter
	EnvelopeRequests *prometheus.CounterVec
	CacheRequests    *prometheus.CounterVec
	CacheInstalls    *prometheus.CounterVec
}

// New creates the collectors on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "observatorio_cycles_total",
			Help: "Fetch and render cycles by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "observatorio_cycle_duration_seconds",
			Help:    "Duration of a fetch cycle (all five fixtures)",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		StaleCycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "observatorio_stale_cycles_total",
			Help: "Cycles discarded because a newer cycle was already applied",
		}),
		EnvelopeRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "observatorio_envelope_requests_total",
			Help: "Aggregation endpoint requests by status",
		}, []string{"status"}),
		CacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "observatorio_offline_requests_total",
			Help: "Requests seen by the offline cache proxy by result (hit or miss)",
		}, []string{"result"}),
		CacheInstalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "observatorio_offline_installs_total",
			Help: "Offline cache install attempts by outcome",
		}, []string{"outcome"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCycle records one finished cycle.
// Call with time.Now() at the start of the cycle.
func (m *Metrics) ObserveCycle(trigger, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Cycles.WithLabelValues(trigger, outcome).Inc()
	m.CycleDuration.Observe(time.Since(start).Seconds())
}

// IncrementStaleCycles records a discarded cycle.
func (m *Metrics) IncrementStaleCycles() {
	if m == nil {
		return
	}
	m.StaleCycles.Inc()
}

// IncrementEnvelopeRequests records an aggregation endpoint response.
func (m *Metrics) IncrementEnvelopeRequests(status string) {
	if m == nil {
		return
	}
	m.EnvelopeRequests.WithLabelValues(status).Inc()
}

// IncrementCacheRequests records a cache hit or miss.
func (m *Metrics) IncrementCacheRequests(result string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

// IncrementCacheInstalls records an install attempt.
func (m *Metrics) IncrementCacheInstalls(outcome string) {
	if m == nil {
		return
	}
	m.CacheInstalls.WithLabelValues(outcome).Inc()
}
