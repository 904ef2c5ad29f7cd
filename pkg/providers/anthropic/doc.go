// Package anthropic implements the adapter for Anthropic-compatible providers.
//
// This package provides an implementation of the providers.Adapter interface
// for the Anthropic Messages API. It supports:
//
//   - Messages API (native request and response schema)
//   - Streaming responses (Server-Sent Events, relayed verbatim)
//   - Token counting with a local fallback estimate
//   - API key and OAuth bearer credentials
//
// # Basic Usage
//
//	config := providers.ProviderConfig{
//	    Name:    "anthropic",
//	    Kind:    providers.KindAnthropic,
//	    BaseURL: "https://api.anthropic.com",
//	}
//
//	adapter, err := anthropic.New(config, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer adapter.Close()
//
//	req := &providers.MessagesRequest{
//	    Model: "claude-sonnet-4-5",
//	    Messages: []providers.Message{
//	        {Role: providers.RoleUser, Content: providers.Text("Hello!")},
//	    },
//	    MaxTokens: 1024,
//	}
//	cred := providers.Credential{Kind: providers.AuthAPIKey, Secret: apiKey}
//
//	resp, err := adapter.Complete(context.Background(), req, cred)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Streaming
//
//	events, err := adapter.Stream(context.Background(), req, cred)
//	if err != nil {
//	    log.Fatal(err) // rejected before any bytes; safe to try elsewhere
//	}
//
//	for ev := range events {
//	    if ev.Error != nil {
//	        log.Fatal(ev.Error) // terminal; the stream already started
//	    }
//	    // ev.Type and ev.Data are the upstream SSE event, unmodified
//	}
//
// # Pass-Through Design
//
// The gateway's unified schema is the Anthropic Messages schema, so this
// adapter performs no request or response transformation. Requests are
// forwarded as received and stream events are relayed with their original
// payload bytes. Providers that expose an Anthropic-compatible endpoint
// (z.ai, MiniMax, Moonshot's anthropic surface) work through the same
// adapter with a different base URL.
//
// # Credentials
//
// The credential resolved for each attempt selects the wire auth:
//
//   - AuthAPIKey sends the x-api-key header
//   - AuthOAuth sends Authorization: Bearer plus the anthropic-beta
//     capability header required for OAuth access
//
// The anthropic-version header is always 2023-06-01.
//
// # Error Handling
//
// The adapter maps upstream failures to common error types:
//
//   - 401/403 -> AuthError
//   - 429 -> RateLimitError (includes retry-after)
//   - other 4xx/5xx -> ProviderError with the status code
//   - stream failure after first event -> StreamError with Started set
//
// Whether a failure moves on to the next candidate is the dispatcher's
// decision; the adapter only classifies.
package anthropic
