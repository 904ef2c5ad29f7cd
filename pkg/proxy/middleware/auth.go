package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/meta-introspector/claude-code-mux/pkg/proxy"
)

// AuthMiddleware enforces the inbound API key on the wrapped routes. The
// key arrives in the x-api-key header or as an Authorization bearer
// token. With an empty configured key the middleware passes every request
// through.
//
// This guards the completion surface only; admin and OAuth routes stay
// open for local tooling.
//
// Example usage:
//
//	handler = AuthMiddleware(cfg.Server.APIKey)(handler)
func AuthMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := proxy.ExtractAPIKey(r)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				status, body := http.StatusUnauthorized,
					proxy.NewErrorBody(proxy.ErrorTypeAuthentication, "invalid x-api-key")
				_ = proxy.WriteJSONResponse(w, status, body)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
