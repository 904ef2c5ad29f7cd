package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics tracks upstream provider attempts.
//
// Metrics:
//   - ccm_provider_attempts_total: attempts by provider and outcome
//   - ccm_provider_latency_seconds: upstream call latency
//   - ccm_provider_errors_total: classified failures by provider
//
// The attempt outcome distinguishes "success", "failover" (transient
// failure, dispatch moved on), "fatal" (permanent failure, dispatch
// stopped) and "aborted" (stream already started, no failover
// possible). rate(attempts_total{outcome="failover"}) is the failover
// rate.
type ProviderMetrics struct {
	attempts *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

// NewProviderMetrics creates and registers the provider metrics.
func NewProviderMetrics(registry *prometheus.Registry) *ProviderMetrics {
	pm := &ProviderMetrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_attempts_total",
				Help:      "Total provider attempts by outcome",
			},
			[]string{"provider", "outcome"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_latency_seconds",
				Help:      "Upstream provider call latency in seconds",
				Buckets:   durationBuckets,
			},
			[]string{"provider"},
		),

		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_errors_total",
				Help:      "Total provider failures by error class",
			},
			[]string{"provider", "error_class"},
		),
	}

	registry.MustRegister(
		pm.attempts,
		pm.latency,
		pm.errors,
	)

	return pm
}

// RecordAttempt records one provider attempt and its latency.
func (pm *ProviderMetrics) RecordAttempt(provider, outcome string, latency time.Duration) {
	pm.attempts.WithLabelValues(provider, outcome).Inc()
	pm.latency.WithLabelValues(provider).Observe(latency.Seconds())
}

// RecordError records a classified provider failure.
func (pm *ProviderMetrics) RecordError(provider, errorClass string) {
	pm.errors.WithLabelValues(provider, errorClass).Inc()
}
