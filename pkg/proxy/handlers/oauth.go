package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/meta-introspector/claude-code-mux/pkg/auth"
	"github.com/meta-introspector/claude-code-mux/pkg/config"
	"github.com/meta-introspector/claude-code-mux/pkg/providers"
	"github.com/meta-introspector/claude-code-mux/pkg/proxy"
)

// OAuthHandler drives the PKCE flow and token maintenance over HTTP.
// Authorization is a two-step dance: Authorize hands back a browser URL
// and a verifier, the operator logs in and pastes the code, Exchange
// trades code plus verifier for a stored token.
type OAuthHandler struct {
	manager TokenManager
}

// NewOAuthHandler creates the OAuth endpoint handler.
func NewOAuthHandler(manager TokenManager) *OAuthHandler {
	return &OAuthHandler{manager: manager}
}

// AuthorizeRequest is the POST /oauth/authorize body.
type AuthorizeRequest struct {
	// OAuthType selects the endpoint preset: "max" or "console".
	OAuthType string `json:"oauth_type"`
}

// AuthorizeResponse carries what the operator needs to finish the flow.
type AuthorizeResponse struct {
	URL          string `json:"url"`
	Verifier     string `json:"verifier"`
	Instructions string `json:"instructions"`
}

// ExchangeRequest is the POST /oauth/exchange body. Code accepts the
// "code#state" form the authorization page displays.
type ExchangeRequest struct {
	Code       string `json:"code"`
	Verifier   string `json:"verifier"`
	ProviderID string `json:"provider_id"`
}

// RefreshRequest is the POST /oauth/refresh body.
type RefreshRequest struct {
	ProviderID string `json:"provider_id"`
}

// Authorize handles POST /oauth/authorize.
func (h *OAuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	var req AuthorizeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.OAuthType == "" {
		req.OAuthType = auth.FlowMax
	}

	authz, err := h.manager.AuthorizeBegin(req.OAuthType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	_ = proxy.WriteJSONResponse(w, http.StatusOK, AuthorizeResponse{
		URL:      authz.URL,
		Verifier: authz.Verifier,
		Instructions: "Open the URL in a browser, authorize, then POST the displayed " +
			"code together with this verifier to /oauth/exchange.",
	})
}

// Exchange handles POST /oauth/exchange.
func (h *OAuthHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	var req ExchangeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Code == "" || req.ProviderID == "" {
		_ = proxy.WriteJSONResponse(w, http.StatusBadRequest,
			proxy.NewErrorBody(proxy.ErrorTypeInvalidRequest, "code and provider_id are required"))
		return
	}

	token, err := h.manager.Exchange(r.Context(), req.Code, req.Verifier, req.ProviderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "oauth token stored", "provider", req.ProviderID)
	_ = proxy.WriteJSONResponse(w, http.StatusOK, statusOf(token))
}

// Tokens handles GET /oauth/tokens. Token values never leave the store;
// the listing carries expiry state only.
func (h *OAuthHandler) Tokens(w http.ResponseWriter, r *http.Request) {
	statuses := h.manager.ListTokens()
	if statuses == nil {
		statuses = []auth.TokenStatus{}
	}
	_ = proxy.WriteJSONResponse(w, http.StatusOK, map[string][]auth.TokenStatus{"tokens": statuses})
}

// Refresh handles POST /oauth/refresh.
func (h *OAuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.ProviderID == "" {
		_ = proxy.WriteJSONResponse(w, http.StatusBadRequest,
			proxy.NewErrorBody(proxy.ErrorTypeInvalidRequest, "provider_id is required"))
		return
	}

	token, err := h.manager.Refresh(r.Context(), req.ProviderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	_ = proxy.WriteJSONResponse(w, http.StatusOK, statusOf(token))
}

// Delete handles DELETE /oauth/token. The provider id arrives as a
// query parameter so the route works from curl without a body.
func (h *OAuthHandler) Delete(w http.ResponseWriter, r *http.Request) {
	providerID := r.URL.Query().Get("provider_id")
	if providerID == "" {
		_ = proxy.WriteJSONResponse(w, http.StatusBadRequest,
			proxy.NewErrorBody(proxy.ErrorTypeInvalidRequest, "provider_id is required"))
		return
	}

	if err := h.manager.DeleteToken(providerID); err != nil {
		h.writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "oauth token deleted", "provider", providerID)
	w.WriteHeader(http.StatusNoContent)
}

// Routes registers the OAuth endpoints on mux.
func (h *OAuthHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /oauth/authorize", h.Authorize)
	mux.HandleFunc("POST /oauth/exchange", h.Exchange)
	mux.HandleFunc("GET /oauth/tokens", h.Tokens)
	mux.HandleFunc("POST /oauth/refresh", h.Refresh)
	mux.HandleFunc("DELETE /oauth/token", h.Delete)
}

// decode parses a JSON body, answering 400 on failure.
func (h *OAuthHandler) decode(w http.ResponseWriter, r *http.Request, into interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		_ = proxy.WriteJSONResponse(w, http.StatusBadRequest,
			proxy.NewErrorBody(proxy.ErrorTypeInvalidRequest, "invalid JSON: "+err.Error()))
		return false
	}
	return true
}

// writeError maps token lifecycle failures onto the error envelope.
func (h *OAuthHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	slog.WarnContext(r.Context(), "oauth operation failed", "error", err)

	switch {
	case errors.Is(err, auth.ErrTokenNotFound):
		_ = proxy.WriteJSONResponse(w, http.StatusNotFound,
			proxy.NewErrorBody(proxy.ErrorTypeNotFound, err.Error()))
	default:
		var authErr *providers.AuthError
		if errors.As(err, &authErr) {
			_ = proxy.WriteJSONResponse(w, http.StatusBadGateway,
				proxy.NewErrorBody(proxy.ErrorTypeAuthentication, err.Error()))
			return
		}
		_ = proxy.WriteJSONResponse(w, http.StatusBadRequest,
			proxy.NewErrorBody(proxy.ErrorTypeInvalidRequest, err.Error()))
	}
}

// statusOf reduces a token to its listing row.
func statusOf(token auth.Token) auth.TokenStatus {
	return auth.TokenStatus{
		ProviderID:   token.ProviderID,
		ExpiresAt:    token.ExpiresAt,
		Expired:      token.Expired(),
		NeedsRefresh: token.NeedsRefresh(config.DefaultRefreshBuffer),
	}
}
