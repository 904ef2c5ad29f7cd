// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// This package implements middleware functions that handle common
// functionality across all HTTP requests including request ID generation,
// logging, metrics, API key authentication, CORS, panic recovery, and
// timeout enforcement.
//
// # Middleware Chain
//
// Middleware functions are chained in a specific order:
//
//	handler = RecoveryMiddleware(RequestIDMiddleware(LoggingMiddleware(MetricsMiddleware(collector)(handler))))
//
// Order (outermost to innermost):
//  1. RecoveryMiddleware: recover from panics, return a JSON 500
//  2. RequestIDMiddleware: generate and propagate the request ID
//  3. LoggingMiddleware: log request/response details
//  4. MetricsMiddleware: record request count and duration
//  5. AuthMiddleware: API key check (completion surface only)
//
// TimeoutMiddleware is applied per route group rather than globally:
// completion requests stream for minutes and are bounded by per-provider
// timeouts instead.
//
// # Request ID
//
// RequestIDMiddleware honors a client-supplied X-Request-ID header and
// otherwise generates a UUID v4:
//
//	X-Request-ID: 550e8400-e29b-41d4-a716-446655440000
//
// The request ID is:
//   - Added to the context via the logging package helpers
//   - Included in response headers
//   - Appended to every log line emitted under the request context
//   - Recorded on request traces
//
// # Logging
//
// LoggingMiddleware uses structured logging (log/slog) to record request
// details:
//
//	{
//	  "time": "2025-11-16T10:30:00Z",
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "method": "POST",
//	  "path": "/v1/messages",
//	  "status": 200,
//	  "latency_ms": 1250,
//	  "request_id": "550e8400-e29b-41d4-a716-446655440000"
//	}
//
// Responses with a 4xx status log at WARN and 5xx at ERROR.
//
// # Authentication
//
// AuthMiddleware compares the client key from x-api-key or Authorization:
// Bearer against the configured server key using a constant time compare.
// An empty configured key disables the check. Failures return 401 with the
// standard error envelope:
//
//	{
//	  "type": "error",
//	  "error": {
//	    "type": "authentication_error",
//	    "message": "invalid x-api-key"
//	  }
//	}
//
// # Recovery
//
// RecoveryMiddleware catches panics in handlers and converts them to HTTP
// 500 errors with the same envelope. The panic stack trace is logged but
// not exposed to clients.
//
// # Timeout
//
// TimeoutMiddleware attaches a deadline to the request context:
//
//	ctx, cancel := context.WithTimeout(r.Context(), timeout)
//	defer cancel()
//
// Handlers observe context.DeadlineExceeded and answer with 504 through
// the shared error mapping.
//
// # Thread Safety
//
// All middleware functions are thread-safe and can be called concurrently
// from multiple goroutines.
package middleware
