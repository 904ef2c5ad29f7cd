package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meta-introspector/claude-code-mux/pkg/processing/tokens"
	"github.com/meta-introspector/claude-code-mux/pkg/providers"
)

// Adapter serves OpenAI-compatible chat completion services. Requests and
// responses are translated between the unified Messages schema and the Chat
// Completions wire format; streams are re-synthesized into Messages events.
type Adapter struct {
	*providers.HTTPClient

	extraHeaders map[string]string
}

// New creates an adapter for an OpenAI-compatible service. The extra headers
// are sent with every request, after the standard ones.
func New(config providers.ProviderConfig, extraHeaders map[string]string) (*Adapter, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{Field: "name", Message: "provider name is required"}
	}
	if config.BaseURL == "" {
		return nil, &providers.ConfigError{Provider: config.Name, Field: "base_url", Message: "base URL is required"}
	}

	adapter := &Adapter{
		HTTPClient:   providers.NewHTTPClient(config),
		extraHeaders: extraHeaders,
	}

	slog.Info("openai adapter initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
	)

	return adapter, nil
}

// Kind returns the wire format this adapter speaks.
func (a *Adapter) Kind() providers.Kind {
	return providers.KindOpenAI
}

// Complete sends a non-streaming completion request.
func (a *Adapter) Complete(ctx context.Context, req *providers.MessagesRequest, cred providers.Credential) (*providers.MessagesResponse, error) {
	chatReq := translateRequest(req)
	url := a.Config().BaseURL + "/chat/completions"

	slog.DebugContext(ctx, "sending completion request",
		"provider", a.Name(),
		"model", chatReq.Model,
		"messages", len(chatReq.Messages),
	)

	var chatResp ChatResponse
	if err := a.DoJSON(ctx, "POST", url, chatReq, &chatResp, a.headers(cred, false)); err != nil {
		return nil, err
	}

	return translateResponse(&chatResp, a.Name())
}

// Stream sends a streaming completion request. The returned channel carries
// Messages events synthesized from the upstream chunks; an error return
// means the upstream rejected the request before any response bytes.
func (a *Adapter) Stream(ctx context.Context, req *providers.MessagesRequest, cred providers.Credential) (<-chan *providers.StreamEvent, error) {
	chatReq := translateRequest(req)
	chatReq.Stream = true
	url := a.Config().BaseURL + "/chat/completions"

	slog.DebugContext(ctx, "starting completion stream",
		"provider", a.Name(),
		"model", chatReq.Model,
	)

	reader, err := newStreamReader(ctx, a, url, chatReq, a.headers(cred, true))
	if err != nil {
		return nil, err
	}

	events := make(chan *providers.StreamEvent, 100)
	go func() {
		defer close(events)
		defer reader.Close()
		relayChat(ctx, reader, events, newSynthesizer(a.Name()))
	}()

	return events, nil
}

// CountTokens estimates token usage locally. Chat Completions services have
// no counting endpoint, so the character heuristic is the best available.
func (a *Adapter) CountTokens(ctx context.Context, req *providers.CountTokensRequest, cred providers.Credential) (*providers.CountTokensResponse, error) {
	return &providers.CountTokensResponse{InputTokens: tokens.EstimateRequest(req)}, nil
}

// headers builds the request headers for the given credential. API keys and
// OAuth tokens both travel as bearer tokens on this wire format.
func (a *Adapter) headers(cred providers.Credential, streaming bool) map[string]string {
	headers := map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", cred.Secret),
		"Content-Type":  "application/json",
	}
	if streaming {
		headers["Accept"] = "text/event-stream"
	}
	for k, v := range a.extraHeaders {
		headers[k] = v
	}
	return headers
}
