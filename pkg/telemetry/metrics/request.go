package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks inbound request processing.
//
// Metrics:
//   - ccm_requests_total: request count by model, routing rule, outcome
//   - ccm_request_duration_seconds: end-to-end request duration
//   - ccm_tokens_total: reported usage by provider, model, direction
//   - ccm_active_streams: streaming responses currently in flight
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
	activeStreams   prometheus.Gauge
}

// NewRequestMetrics creates and registers the request metrics.
func NewRequestMetrics(registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of gateway requests by resolved model, routing rule and outcome",
			},
			[]string{"model", "rule", "outcome"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "End-to-end request duration in seconds",
				Buckets:   durationBuckets,
			},
			[]string{"model"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_total",
				Help:      "Total tokens reported by providers, by direction",
			},
			[]string{"provider", "model", "type"},
		),

		activeStreams: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_streams",
				Help:      "Streaming responses currently in flight",
			},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.tokensTotal,
		rm.activeStreams,
	)

	return rm
}

// RecordRequest records one completed request.
func (rm *RequestMetrics) RecordRequest(model, rule, outcome string, duration time.Duration) {
	rm.requestsTotal.WithLabelValues(model, rule, outcome).Inc()
	rm.requestDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// RecordUsage records reported token counts.
func (rm *RequestMetrics) RecordUsage(provider, model string, inputTokens, outputTokens int) {
	if inputTokens > 0 {
		rm.tokensTotal.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		rm.tokensTotal.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
	}
}

// StreamStarted increments the in-flight stream gauge.
func (rm *RequestMetrics) StreamStarted() {
	rm.activeStreams.Inc()
}

// StreamEnded decrements the in-flight stream gauge.
func (rm *RequestMetrics) StreamEnded() {
	rm.activeStreams.Dec()
}
