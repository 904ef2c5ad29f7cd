package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks the HTTP surface in front of the gateway.
//
// Metrics:
//   - ccm_http_requests_total: request count by method, path, status
//   - ccm_http_request_duration_seconds: request duration by method, path
//
// The path label carries the route pattern, not the raw URL, so its
// cardinality is bounded by the route table.
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics creates and registers the HTTP metrics.
func NewHTTPMetrics(registry *prometheus.Registry) *HTTPMetrics {
	hm := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by method, path and status code",
			},
			[]string{"method", "path", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   durationBuckets,
			},
			[]string{"method", "path"},
		),
	}

	registry.MustRegister(
		hm.requestsTotal,
		hm.requestDuration,
	)

	return hm
}

// RecordRequest records one completed HTTP request.
func (hm *HTTPMetrics) RecordRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	hm.requestsTotal.WithLabelValues(method, path, code).Inc()
	hm.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
