package middleware

import (
	"net/http"
	"time"

	"github.com/meta-introspector/claude-code-mux/pkg/telemetry/metrics"
)

// MetricsMiddleware records HTTP-level request metrics: count and
// duration by method, path and status. A nil collector disables it.
//
// The gateway records its own domain metrics (routing, attempts, usage);
// this layer only measures the HTTP surface in front of it.
//
// Example usage:
//
//	handler = MetricsMiddleware(collector)(handler)
func MetricsMiddleware(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if collector == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			collector.RecordHTTPRequest(r.Method, r.URL.Path, rw.statusCode, time.Since(startTime))
		})
	}
}
