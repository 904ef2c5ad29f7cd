// Package providers defines the unified upstream abstraction of the gateway.
//
// # Overview
//
// The providers package carries the unified request and response schema (the
// Anthropic Messages dialect), the Adapter interface every upstream speaks
// through, the shared HTTP client, the classified error types, and the
// built-in presets for known provider services.
//
// # Architecture
//
// The package is organized into a few layers:
//
//  1. Unified schema - MessagesRequest/MessagesResponse and stream events
//  2. Adapter interface - the contract each wire dialect implements
//  3. HTTPClient - shared connection pooling, timeouts, error classification
//  4. Presets - built-in base URLs and headers for known provider types
//
// Concrete adapters live in the anthropic and openai subpackages. The
// registry package assembles adapters from configuration.
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
//	cred := providers.Credential{Kind: providers.AuthAPIKey, Secret: key}
//
//	resp, err := adapter.Complete(context.Background(), req, cred)
//
// # Streaming
//
//	events, err := adapter.Stream(ctx, req, cred)
//	if err != nil {
//	    // rejected before any bytes; the dispatcher may try the next candidate
//	}
//	for ev := range events {
//	    if ev.Error != nil {
//	        // terminal; a started stream is never retried elsewhere
//	    }
//	}
//
// # Error Handling
//
// The package defines specific error types for upstream failure modes:
//
//   - ProviderError: general upstream errors with the HTTP status
//   - AuthError: rejected or unresolvable credentials (HTTP 401/403)
//   - RateLimitError: rate limit exceeded (HTTP 429, with Retry-After)
//   - TimeoutError: the per-attempt budget expired
//   - ParseError: malformed upstream response
//   - ModelNotFoundError: no route for the requested model
//   - StreamError: a streaming failure, flagged with whether it started
//   - ConfigError: invalid provider configuration
//
// Callers classify with errors.As; every wrapper implements Unwrap.
//
// # Thread Safety
//
// Adapters are safe for concurrent use. One adapter serves all requests for
// its provider; per-request state lives in arguments and return values.
package providers
