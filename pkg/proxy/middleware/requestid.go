package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/meta-introspector/claude-code-mux/pkg/telemetry/logging"
)

const (
	// RequestIDHeader is the HTTP header for request ID.
	RequestIDHeader = "X-Request-ID"
)

// RequestIDMiddleware assigns a unique request ID to each request and adds
// it to the context and response headers. If the client provides a request
// ID in the X-Request-ID header, it is used instead of generating a new
// one.
//
// The request ID is:
//   - Added to the request context, where the logging handler and the
//     trace recorder pick it up
//   - Included in the X-Request-ID response header
//
// Example usage:
//
//	handler = RequestIDMiddleware(handler)
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := logging.WithRequestID(r.Context(), requestID)
		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
