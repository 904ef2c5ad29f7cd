package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/meta-introspector/claude-code-mux/pkg/processing/tokens"
	"github.com/meta-introspector/claude-code-mux/pkg/providers"
)

// Adapter speaks the Anthropic Messages API. The gateway's unified schema is
// the same dialect, so requests and responses pass through unchanged; the
// adapter's work is authentication headers and the SSE relay.
type Adapter struct {
	*providers.HTTPClient

	// extraHeaders are static headers from the provider preset.
	extraHeaders map[string]string
}

const (
	// APIVersion is the anthropic-version header value sent upstream.
	APIVersion = "2023-06-01"

	// OAuthBeta is the capability header required when authenticating
	// with a bearer token instead of an API key.
	OAuthBeta = "oauth-2025-04-20"
)

// New creates an Anthropic-dialect adapter for one configured provider.
func New(config providers.ProviderConfig, extraHeaders map[string]string) (*Adapter, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "anthropic",
			Field:    "name",
			Message:  "provider name is required",
		}
	}

	if config.BaseURL == "" {
		config.BaseURL = "https://api.anthropic.com"
	}

	a := &Adapter{
		HTTPClient:   providers.NewHTTPClient(config),
		extraHeaders: extraHeaders,
	}

	slog.Info("anthropic adapter initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
	)

	return a, nil
}

// Complete sends a non-streaming Messages request upstream.
func (a *Adapter) Complete(ctx context.Context, req *providers.MessagesRequest, cred providers.Credential) (*providers.MessagesResponse, error) {
	url := fmt.Sprintf("%s/v1/messages", a.Config().BaseURL)

	var resp providers.MessagesResponse
	if err := a.DoJSON(ctx, "POST", url, req, &resp, a.headers(cred, false)); err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "completion succeeded",
		"provider", a.Name(),
		"model", resp.Model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)

	return &resp, nil
}

// Stream sends a streaming Messages request and relays the upstream SSE
// events unchanged.
func (a *Adapter) Stream(ctx context.Context, req *providers.MessagesRequest, cred providers.Credential) (<-chan *providers.StreamEvent, error) {
	streamReq := *req
	streamReq.Stream = true

	url := fmt.Sprintf("%s/v1/messages", a.Config().BaseURL)

	reader, err := newStreamReader(ctx, a, url, &streamReq, a.headers(cred, true))
	if err != nil {
		return nil, err
	}

	events := make(chan *providers.StreamEvent, 100)

	go func() {
		defer close(events)
		defer reader.Close()
		relayEvents(ctx, reader, events, a.Name())
	}()

	return events, nil
}

// CountTokens asks the upstream counting endpoint for the prompt size,
// falling back to a local estimate when the endpoint is not offered.
func (a *Adapter) CountTokens(ctx context.Context, req *providers.CountTokensRequest, cred providers.Credential) (*providers.CountTokensResponse, error) {
	url := fmt.Sprintf("%s/v1/messages/count_tokens", a.Config().BaseURL)

	var resp providers.CountTokensResponse
	err := a.DoJSON(ctx, "POST", url, req, &resp, a.headers(cred, false))
	if err == nil {
		return &resp, nil
	}

	// Compatible services frequently omit the counting endpoint.
	var provErr *providers.ProviderError
	if errors.As(err, &provErr) && (provErr.StatusCode == 404 || provErr.StatusCode == 405) {
		slog.DebugContext(ctx, "counting endpoint unavailable, estimating",
			"provider", a.Name(),
		)
		return &providers.CountTokensResponse{
			InputTokens: tokens.EstimateRequest(req),
		}, nil
	}

	return nil, err
}

// headers builds the per-request header set for the given credential.
func (a *Adapter) headers(cred providers.Credential, streaming bool) map[string]string {
	h := map[string]string{
		"anthropic-version": APIVersion,
		"Content-Type":      "application/json",
	}

	switch cred.Kind {
	case providers.AuthOAuth:
		h["Authorization"] = "Bearer " + cred.Secret
		h["anthropic-beta"] = OAuthBeta
	default:
		h["x-api-key"] = cred.Secret
	}

	if streaming {
		h["Accept"] = "text/event-stream"
	}

	for k, v := range a.extraHeaders {
		h[k] = v
	}

	return h
}

