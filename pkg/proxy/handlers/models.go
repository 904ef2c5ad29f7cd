package handlers

import (
	"net/http"

	"github.com/meta-introspector/claude-code-mux/pkg/gateway"
	"github.com/meta-introspector/claude-code-mux/pkg/proxy"
)

// ModelListing is the GET /v1/models response, in the list shape both
// client dialects understand.
type ModelListing struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

// ModelInfo is one routable model name.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelsHandler serves GET /v1/models with the mapped model names from
// the current snapshot. These are the names clients can send; upstream
// model names stay internal to the mappings.
type ModelsHandler struct {
	gateway Gateway
}

// NewModelsHandler creates the model listing handler.
func NewModelsHandler(gateway Gateway) *ModelsHandler {
	return &ModelsHandler{gateway: gateway}
}

// ServeHTTP handles one model listing request.
func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		_ = proxy.WriteJSONResponse(w, http.StatusMethodNotAllowed,
			proxy.NewErrorBody(proxy.ErrorTypeInvalidRequest, "method not allowed"))
		return
	}

	snapshot := h.gateway.Snapshot()
	if snapshot == nil {
		_ = proxy.WriteError(w, gateway.ErrNotReady)
		return
	}

	created := snapshot.LoadedAt().Unix()
	listing := ModelListing{Object: "list", Data: []ModelInfo{}}
	for _, name := range snapshot.ModelNames() {
		listing.Data = append(listing.Data, ModelInfo{
			ID:      name,
			Object:  "model",
			Created: created,
			OwnedBy: "claude-code-mux",
		})
	}

	_ = proxy.WriteJSONResponse(w, http.StatusOK, listing)
}
