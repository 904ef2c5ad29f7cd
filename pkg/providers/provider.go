package providers

import "context"

// Adapter is the contract every upstream dialect implements. The dispatcher
// resolves one Credential per candidate, then hands adapter, credential, and
// the unified request to the same call path regardless of dialect.
//
// All methods accept a context.Context for cancellation and timeout control.
// Implementations must respect context cancellation and return promptly when
// the context is cancelled.
//
// Example usage:
//
//	adapter := anthropic.New(cfg)
//	cred := providers.Credential{Kind: providers.AuthAPIKey, Secret: key}
//
//	resp, err := adapter.Complete(ctx, req, cred)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(resp.Content)
type Adapter interface {
	// Complete sends a non-streaming request. The unified request is
	// translated to the adapter's dialect, sent upstream, and the response
	// normalized back to the unified shape.
	Complete(ctx context.Context, req *MessagesRequest, cred Credential) (*MessagesResponse, error)

	// Stream sends a streaming request and returns a channel of unified
	// stream events. The channel is closed after the terminal event. If the
	// upstream fails mid-stream, the final event carries the error; events
	// already delivered stand.
	//
	// An error return means the upstream rejected the request before any
	// response bytes; no events were delivered and the caller may fail over.
	//
	// Example:
	//
	//	events, err := adapter.Stream(ctx, req, cred)
	//	if err != nil {
	//	    return err
	//	}
	//	for ev := range events {
	//	    if ev.Error != nil {
	//	        return ev.Error
	//	    }
	//	    writeSSE(w, ev)
	//	}
	Stream(ctx context.Context, req *MessagesRequest, cred Credential) (<-chan *StreamEvent, error)

	// CountTokens reports the prompt token count without generating.
	// Adapters whose upstream has no counting endpoint return an estimate.
	CountTokens(ctx context.Context, req *CountTokensRequest, cred Credential) (*CountTokensResponse, error)

	// Name returns the configured provider name.
	Name() string

	// Kind returns the wire dialect this adapter speaks.
	Kind() Kind

	// Config returns the adapter's configuration.
	Config() ProviderConfig

	// Close releases transport resources. The adapter must not be used
	// after Close.
	Close() error
}
