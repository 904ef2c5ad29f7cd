package middleware

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware bounds request processing with a context deadline.
// The handler keeps exclusive ownership of the response writer; when the
// deadline expires the handler observes context.DeadlineExceeded through
// the request context and answers with its own 504 mapping.
//
// Not mounted on the completion surface: streaming responses stay open
// for as long as the upstream generates, bounded per provider instead.
//
// Example usage:
//
//	handler = TimeoutMiddleware(60 * time.Second)(handler)
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
