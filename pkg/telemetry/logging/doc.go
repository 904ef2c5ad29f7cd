// Package logging configures structured logging for the gateway.
//
// # Overview
//
// The package builds on log/slog and adds what the gateway needs:
//   - Credential redaction (API keys, bearer tokens, OAuth secrets)
//   - Request-scoped fields pulled from the context on *Context calls
//   - A ring buffer of recent entries backing the logs endpoint
//   - Text or JSON output at a configurable level
//
// # Usage
//
//	// Install the process logger from configuration.
//	ring, err := logging.Setup(cfg.Telemetry.Logging, os.Stdout)
//	if err != nil {
//	    return err
//	}
//
//	// Log through slog as usual; secrets are masked on the way out.
//	slog.Info("provider configured",
//	    "provider", "anthropic",
//	    "api_key", "sk-abc123",  // logged as a masked value
//	)
//
//	// Handlers attach request fields once and every later log line
//	// carries them.
//	ctx = logging.WithRequestID(ctx, requestID)
//	slog.InfoContext(ctx, "request routed", "model", model)
//
// # Redaction
//
// Values under sensitive key names (api_key, token, secret,
// authorization, code_verifier and variants) are always masked. String
// and error values under other keys are scanned for token-shaped
// substrings such as sk- keys and Bearer headers.
//
// # Ring Buffer
//
// Every record that passes the level filter is also captured, after
// redaction, into an in-memory ring sized by logging.buffer_size. The
// logs endpoint serves the ring's tail, so recent activity is
// inspectable without touching process output.
package logging
