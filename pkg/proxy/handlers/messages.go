package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/meta-introspector/claude-code-mux/pkg/processing/tokens"
	"github.com/meta-introspector/claude-code-mux/pkg/providers"
	"github.com/meta-introspector/claude-code-mux/pkg/proxy"
)

// MessagesHandler serves POST /v1/messages, the native endpoint. The
// body is already in the unified shape, so it goes to the gateway as
// parsed.
type MessagesHandler struct {
	gateway Gateway
}

// NewMessagesHandler creates the Messages endpoint handler.
func NewMessagesHandler(gateway Gateway) *MessagesHandler {
	return &MessagesHandler{gateway: gateway}
}

// ServeHTTP handles one Messages request.
func (h *MessagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		_ = proxy.WriteJSONResponse(w, http.StatusMethodNotAllowed,
			proxy.NewErrorBody(proxy.ErrorTypeInvalidRequest, "method not allowed"))
		return
	}

	ctx := r.Context()

	req, err := proxy.ParseMessagesRequest(r)
	if err != nil {
		slog.WarnContext(ctx, "rejected messages request", "error", err)
		_ = proxy.WriteError(w, err)
		return
	}

	if req.Stream {
		h.stream(w, r, req)
		return
	}

	resp, err := h.gateway.Complete(ctx, req)
	if err != nil {
		_ = proxy.WriteError(w, err)
		return
	}

	if err := proxy.WriteJSONResponse(w, http.StatusOK, resp); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

// stream relays the unified event stream in Messages API framing. A
// pre-delivery failure still answers with a JSON error; once events
// have gone out, a failure becomes the trailing error event.
func (h *MessagesHandler) stream(w http.ResponseWriter, r *http.Request, req *providers.MessagesRequest) {
	ctx := r.Context()

	events, err := h.gateway.Stream(ctx, req)
	if err != nil {
		_ = proxy.WriteError(w, err)
		return
	}

	proxy.SetSSEHeaders(w)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	for ev := range events {
		if ev.Error != nil {
			_, body := proxy.HandleError(ev.Error)
			if err := proxy.WriteSSEErrorEvent(w, body); err != nil {
				slog.ErrorContext(ctx, "failed to write stream error", "error", err)
			}
			return
		}
		if err := proxy.WriteSSEEvent(w, ev.Type, ev.Data); err != nil {
			// The client hung up; the gateway notices through ctx.
			slog.DebugContext(ctx, "stream write failed", "error", err)
			return
		}
	}
}

// CountTokensHandler serves POST /v1/messages/count_tokens. Counting
// routes like a completion would; when no candidate can answer, the
// local estimator supplies an approximate count instead of an error.
type CountTokensHandler struct {
	gateway Gateway
}

// NewCountTokensHandler creates the count_tokens handler.
func NewCountTokensHandler(gateway Gateway) *CountTokensHandler {
	return &CountTokensHandler{gateway: gateway}
}

// ServeHTTP handles one count request.
func (h *CountTokensHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		_ = proxy.WriteJSONResponse(w, http.StatusMethodNotAllowed,
			proxy.NewErrorBody(proxy.ErrorTypeInvalidRequest, "method not allowed"))
		return
	}

	ctx := r.Context()

	req, err := proxy.ParseCountTokensRequest(r)
	if err != nil {
		_ = proxy.WriteError(w, err)
		return
	}

	start := time.Now()
	resp, err := h.gateway.CountTokens(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		resp = &providers.CountTokensResponse{InputTokens: tokens.EstimateRequest(req)}
		slog.DebugContext(ctx, "count_tokens fell back to estimate",
			"model", req.Model,
			"tokens", resp.InputTokens,
			"latency_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
	}

	if err := proxy.WriteJSONResponse(w, http.StatusOK, resp); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}
