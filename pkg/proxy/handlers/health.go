package handlers

import (
	"net/http"
	"time"

	"github.com/meta-introspector/claude-code-mux/pkg/auth"
	"github.com/meta-introspector/claude-code-mux/pkg/proxy"
)

// HealthStatus is the GET /health response.
type HealthStatus struct {
	Status    string             `json:"status"`
	Version   string             `json:"version"`
	UptimeSec int64              `json:"uptime_seconds"`
	Providers []ProviderView     `json:"providers"`
	OAuth     []auth.TokenStatus `json:"oauth,omitempty"`
}

// HealthHandler serves liveness plus a provider and token summary. The
// endpoint never requires the inbound API key, so probes keep working
// with authentication enabled.
type HealthHandler struct {
	gateway Gateway
	tokens  TokenManager
	version string
	started time.Time
}

// NewHealthHandler creates the health endpoint handler. tokens may be
// nil when no OAuth manager runs.
func NewHealthHandler(gw Gateway, tokens TokenManager, version string) *HealthHandler {
	return &HealthHandler{
		gateway: gw,
		tokens:  tokens,
		version: version,
		started: time.Now(),
	}
}

// ServeHTTP handles one health probe.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		_ = proxy.WriteJSONResponse(w, http.StatusMethodNotAllowed,
			proxy.NewErrorBody(proxy.ErrorTypeInvalidRequest, "method not allowed"))
		return
	}

	status := HealthStatus{
		Status:    "ok",
		Version:   h.version,
		UptimeSec: int64(time.Since(h.started).Seconds()),
		Providers: []ProviderView{},
	}

	snapshot := h.gateway.Snapshot()
	switch {
	case snapshot == nil:
		status.Status = "starting"
	default:
		cfg := snapshot.Config()
		enabled := 0
		for _, name := range sortedProviderNames(cfg) {
			p := cfg.Providers[name]
			if p.IsEnabled() {
				enabled++
			}
			authKind := p.Auth
			if authKind == "" {
				authKind = "api_key"
			}
			status.Providers = append(status.Providers, ProviderView{
				Name:    name,
				Type:    p.Type,
				Kind:    p.Kind,
				Auth:    authKind,
				Enabled: p.IsEnabled(),
			})
		}
		if enabled == 0 {
			status.Status = "degraded"
		}
	}

	if h.tokens != nil {
		status.OAuth = h.tokens.ListTokens()
	}

	_ = proxy.WriteJSONResponse(w, http.StatusOK, status)
}
