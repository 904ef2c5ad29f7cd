package logging

import (
	"context"
	"log/slog"
)

// Context keys for request-scoped log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// ProviderKey is the context key for the provider being attempted.
	ProviderKey contextKey = "provider"

	// ModelKey is the context key for the requested model name.
	ModelKey contextKey = "model"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithProvider adds a provider name to the context.
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, ProviderKey, provider)
}

// GetProvider retrieves the provider name from the context.
func GetProvider(ctx context.Context) string {
	if provider, ok := ctx.Value(ProviderKey).(string); ok {
		return provider
	}
	return ""
}

// WithModel adds a model name to the context.
func WithModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, ModelKey, model)
}

// GetModel retrieves the model name from the context.
func GetModel(ctx context.Context) string {
	if model, ok := ctx.Value(ModelKey).(string); ok {
		return model
	}
	return ""
}

// contextAttrs extracts the request-scoped fields present in ctx. The
// handler appends them to every record logged through the *Context slog
// methods, so handlers never thread request IDs by hand.
func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr

	if requestID := GetRequestID(ctx); requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}
	if provider := GetProvider(ctx); provider != "" {
		attrs = append(attrs, slog.String("provider", provider))
	}
	if model := GetModel(ctx); model != "" {
		attrs = append(attrs, slog.String("model", model))
	}

	return attrs
}
