// Package auth manages OAuth credentials for upstream providers.
//
// # Overview
//
// Providers configured with auth "oauth" send a bearer token instead
// of a static API key. This package owns that token's whole lifecycle:
// the browser authorization flow with PKCE, the code exchange, durable
// storage, and refresh ahead of expiry.
//
// The Manager is the public surface. The dispatcher asks it for a
// valid token per attempt; the HTTP OAuth endpoints drive the
// authorize and exchange steps; the Sweeper refreshes expiring tokens
// in the background.
//
// # Refresh
//
// A token is refreshed once it expires within the configured buffer
// (5 minutes by default). Refreshes for one provider id are
// single-flighted: the token endpoint invalidates a refresh token on
// first use, so concurrent refreshes must collapse into one exchange
// whose result every caller shares. A failed refresh leaves the prior
// record untouched.
//
// # Storage
//
// Tokens persist as one JSON object keyed by provider id, by default
// at ~/.claude-code-mux/oauth_tokens.json. The file is owner-only and
// every write replaces it atomically through a temp file rename.
//
// # Flows
//
// Two built-in Anthropic flows share one OAuth client: "max"
// authorizes a Claude Pro/Max subscription, "console" authorizes the
// Anthropic Console. AuthorizeBegin returns the URL to open and the
// PKCE verifier; Exchange turns the pasted code into a stored token.
package auth
