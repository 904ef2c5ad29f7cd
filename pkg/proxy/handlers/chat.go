package handlers

import (
	"log/slog"
	"net/http"

	"github.com/meta-introspector/claude-code-mux/pkg/providers"
	"github.com/meta-introspector/claude-code-mux/pkg/proxy"
)

// ChatHandler serves POST /v1/chat/completions for OpenAI-dialect
// clients. The request converts to the unified Messages shape before
// routing, so the same rules and failover apply to both surfaces.
type ChatHandler struct {
	gateway Gateway
}

// NewChatHandler creates the Chat Completions compatibility handler.
func NewChatHandler(gateway Gateway) *ChatHandler {
	return &ChatHandler{gateway: gateway}
}

// ServeHTTP handles one Chat Completions request.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		_ = proxy.WriteJSONResponse(w, http.StatusMethodNotAllowed,
			&proxy.ChatErrorBody{Error: proxy.ChatErrorDetail{
				Type:    "invalid_request_error",
				Message: "method not allowed",
			}})
		return
	}

	ctx := r.Context()

	chatReq, err := proxy.ParseChatRequest(r)
	if err != nil {
		slog.WarnContext(ctx, "rejected chat request", "error", err)
		_ = proxy.WriteChatError(w, err)
		return
	}

	req := proxy.ChatToMessages(chatReq)

	if req.Stream {
		h.stream(w, r, req)
		return
	}

	resp, err := h.gateway.Complete(ctx, req)
	if err != nil {
		_ = proxy.WriteChatError(w, err)
		return
	}

	if err := proxy.WriteJSONResponse(w, http.StatusOK, proxy.MessagesToChat(resp, chatReq.Model)); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

// stream relays the unified event stream as Chat Completions chunks. A
// mid-stream failure surfaces as an error payload in stream framing;
// [DONE] is written only for streams that completed.
func (h *ChatHandler) stream(w http.ResponseWriter, r *http.Request, req *providers.MessagesRequest) {
	ctx := r.Context()

	events, err := h.gateway.Stream(ctx, req)
	if err != nil {
		_ = proxy.WriteChatError(w, err)
		return
	}

	proxy.SetSSEHeaders(w)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	translator := proxy.NewStreamTranslator(req.Model)
	for ev := range events {
		if ev.Error != nil {
			_, body := proxy.HandleChatError(ev.Error)
			if err := proxy.WriteSSEError(w, body); err != nil {
				slog.ErrorContext(ctx, "failed to write stream error", "error", err)
			}
			return
		}
		for _, chunk := range translator.Translate(ev) {
			if err := proxy.WriteSSEChunk(w, chunk); err != nil {
				slog.DebugContext(ctx, "stream write failed", "error", err)
				return
			}
		}
	}

	if err := proxy.WriteSSEDone(w); err != nil {
		slog.DebugContext(ctx, "failed to write done marker", "error", err)
	}
}
