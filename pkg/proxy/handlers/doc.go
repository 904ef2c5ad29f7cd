// Package handlers provides the HTTP handlers of the gateway's API
// surface.
//
// The completion surface:
//
//   - POST /v1/messages - native Messages endpoint, streaming and
//     non-streaming. Requests pass to the gateway unchanged.
//   - POST /v1/messages/count_tokens - token counting, with a local
//     estimate when no upstream can answer.
//   - POST /v1/chat/completions - Chat Completions compatibility.
//     Requests are converted to the unified Messages shape before the
//     gateway sees them and responses are converted back.
//   - GET /v1/models - the configured model names.
//
// The OAuth surface drives the PKCE authorization flow and token
// maintenance:
//
//   - POST /oauth/authorize - start the flow, returns the browser URL
//     and the verifier for the exchange step
//   - POST /oauth/exchange - trade the pasted code for a token
//   - GET /oauth/tokens - stored token status, never token values
//   - POST /oauth/refresh - force a refresh
//   - DELETE /oauth/token - drop a stored token
//
// The admin surface exposes the running state for local tooling: the
// redacted configuration, provider and model listings, the recent log
// ring, dispatch trace records, and a graceful shutdown trigger.
//
// Handlers depend on narrow local interfaces (Gateway, TokenManager)
// rather than concrete types so tests can substitute fakes.
package handlers
