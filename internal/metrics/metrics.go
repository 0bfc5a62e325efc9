// Package metrics exposes Prometheus instruments for the tracker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "city_weather"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	refreshRuns      prometheus.Counter
	refreshCities    *prometheus.CounterVec
	refreshDuration  prometheus.Histogram
	authAttempts     *prometheus.CounterVec
}

// New creates the instruments and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Outbound weather provider calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Latency of outbound weather provider calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		refreshRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_runs_total",
			Help:      "Completed refresh-all runs.",
		}),
		refreshCities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_cities_total",
			Help:      "Per-city refresh results.",
		}, []string{"result"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Wall time of refresh-all runs.",
			Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Register and login attempts by outcome.",
		}, []string{"action", "outcome"}),
	}

	reg.MustRegister(
		m.providerRequests,
		m.providerLatency,
		m.refreshRuns,
		m.refreshCities,
		m.refreshDuration,
		m.authAttempts,
	)
	return m
}

func (m *Metrics) ObserveProviderCall(provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.providerRequests.WithLabelValues(provider, outcome).Inc()
	m.providerLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRefresh(updated, failed int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.refreshRuns.Inc()
	m.refreshCities.WithLabelValues("updated").Add(float64(updated))
	m.refreshCities.WithLabelValues("failed").Add(float64(failed))
	m.refreshDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveAuth(action, outcome string) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(action, outcome).Inc()
}
