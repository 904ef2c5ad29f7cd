package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/meta-introspector/claude-code-mux/pkg/proxy"
)

// RecoveryMiddleware recovers from panics in HTTP handlers and returns a
// 500 Internal Server Error in the Messages API error format. It logs the
// panic with a stack trace but does not expose internal details to
// clients.
//
// Example usage:
//
//	handler = RecoveryMiddleware(handler)
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				stack := debug.Stack()

				slog.ErrorContext(r.Context(), "panic in handler",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(stack),
				)

				body := proxy.NewErrorBody(proxy.ErrorTypeAPI,
					"An internal error occurred. Please try again later.")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)

				// Encoding errors are unrecoverable at this point.
				_ = json.NewEncoder(w).Encode(body)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
