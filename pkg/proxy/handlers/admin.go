package handlers

import (
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/meta-introspector/claude-code-mux/pkg/config"
	"github.com/meta-introspector/claude-code-mux/pkg/gateway"
	"github.com/meta-introspector/claude-code-mux/pkg/proxy"
	"github.com/meta-introspector/claude-code-mux/pkg/telemetry/logging"
	"github.com/meta-introspector/claude-code-mux/pkg/telemetry/trace"
)

// defaultTailLimit caps log and trace listings when the client does not
// ask for a specific count.
const defaultTailLimit = 100

// AdminHandler exposes the running state for local tooling: the
// redacted configuration, provider listing, recent logs, dispatch
// traces, and a graceful shutdown trigger.
type AdminHandler struct {
	gateway  Gateway
	ring     *logging.Ring
	traces   trace.Storage
	shutdown func()
}

// NewAdminHandler creates the admin surface. ring, traces and shutdown
// may be nil; the matching endpoints then answer 404.
func NewAdminHandler(gw Gateway, ring *logging.Ring, traces trace.Storage, shutdown func()) *AdminHandler {
	return &AdminHandler{gateway: gw, ring: ring, traces: traces, shutdown: shutdown}
}

// Routes registers the admin endpoints on mux.
func (h *AdminHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/config", h.Config)
	mux.HandleFunc("GET /api/models", h.Models)
	mux.HandleFunc("GET /api/providers", h.Providers)
	mux.HandleFunc("GET /api/logs", h.Logs)
	mux.HandleFunc("GET /api/traces", h.Traces)
	mux.HandleFunc("POST /api/shutdown", h.Shutdown)
}

// Config answers with the loaded configuration, secrets redacted.
func (h *AdminHandler) Config(w http.ResponseWriter, r *http.Request) {
	snapshot := h.gateway.Snapshot()
	if snapshot == nil {
		_ = proxy.WriteError(w, gateway.ErrNotReady)
		return
	}

	_ = proxy.WriteJSONResponse(w, http.StatusOK, redactConfig(snapshot.Config()))
}

// ModelRoute is one model mapping in the admin listing, candidates in
// failover order.
type ModelRoute struct {
	Model      string             `json:"model"`
	Candidates []config.Candidate `json:"candidates"`
}

// Models answers with the routing table.
func (h *AdminHandler) Models(w http.ResponseWriter, r *http.Request) {
	snapshot := h.gateway.Snapshot()
	if snapshot == nil {
		_ = proxy.WriteError(w, gateway.ErrNotReady)
		return
	}

	names := snapshot.ModelNames()
	routes := make([]ModelRoute, 0, len(names))
	for _, name := range names {
		routes = append(routes, ModelRoute{Model: name, Candidates: snapshot.Candidates(name)})
	}

	_ = proxy.WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"default_model": snapshot.Router().Default,
		"models":        routes,
	})
}

// ProviderView is one row of the provider listing.
type ProviderView struct {
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Auth    string `json:"auth"`
	BaseURL string `json:"base_url,omitempty"`
	Enabled bool   `json:"enabled"`
}

// Providers answers with the configured providers. Credentials are
// omitted entirely rather than redacted.
func (h *AdminHandler) Providers(w http.ResponseWriter, r *http.Request) {
	snapshot := h.gateway.Snapshot()
	if snapshot == nil {
		_ = proxy.WriteError(w, gateway.ErrNotReady)
		return
	}

	cfg := snapshot.Config()
	views := make([]ProviderView, 0, len(cfg.Providers))
	for _, name := range sortedProviderNames(cfg) {
		p := cfg.Providers[name]
		auth := p.Auth
		if auth == "" {
			auth = "api_key"
		}
		views = append(views, ProviderView{
			Name:    name,
			Type:    p.Type,
			Kind:    p.Kind,
			Auth:    auth,
			BaseURL: p.BaseURL,
			Enabled: p.IsEnabled(),
		})
	}

	_ = proxy.WriteJSONResponse(w, http.StatusOK, map[string][]ProviderView{"providers": views})
}

// Logs answers with the tail of the in-memory log ring.
func (h *AdminHandler) Logs(w http.ResponseWriter, r *http.Request) {
	if h.ring == nil {
		http.NotFound(w, r)
		return
	}

	limit := queryInt(r, "limit", defaultTailLimit)
	level, err := logging.ParseLevel(queryString(r, "level", "debug"))
	if err != nil {
		_ = proxy.WriteJSONResponse(w, http.StatusBadRequest,
			proxy.NewErrorBody(proxy.ErrorTypeInvalidRequest, err.Error()))
		return
	}

	entries := h.ring.Tail(limit, level)
	if entries == nil {
		entries = []logging.Entry{}
	}
	_ = proxy.WriteJSONResponse(w, http.StatusOK, map[string][]logging.Entry{"logs": entries})
}

// Traces answers with recent dispatch records, newest first.
func (h *AdminHandler) Traces(w http.ResponseWriter, r *http.Request) {
	if h.traces == nil {
		http.NotFound(w, r)
		return
	}

	query := &trace.Query{
		Limit:    queryInt(r, "limit", defaultTailLimit),
		Provider: r.URL.Query().Get("provider"),
		Model:    r.URL.Query().Get("model"),
		Outcome:  r.URL.Query().Get("outcome"),
	}
	if err := query.Validate(); err != nil {
		_ = proxy.WriteJSONResponse(w, http.StatusBadRequest,
			proxy.NewErrorBody(proxy.ErrorTypeInvalidRequest, err.Error()))
		return
	}

	records, err := h.traces.Query(r.Context(), query)
	if err != nil {
		slog.ErrorContext(r.Context(), "trace query failed", "error", err)
		_ = proxy.WriteJSONResponse(w, http.StatusInternalServerError,
			proxy.NewErrorBody(proxy.ErrorTypeAPI, "trace query failed"))
		return
	}
	if records == nil {
		records = []*trace.Record{}
	}

	_ = proxy.WriteJSONResponse(w, http.StatusOK, map[string][]*trace.Record{"traces": records})
}

// Shutdown acknowledges, then triggers a graceful stop. The response
// goes out before the listener starts draining.
func (h *AdminHandler) Shutdown(w http.ResponseWriter, r *http.Request) {
	if h.shutdown == nil {
		http.NotFound(w, r)
		return
	}

	slog.InfoContext(r.Context(), "shutdown requested over admin API")
	_ = proxy.WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "shutting down"})

	go h.shutdown()
}

// redactConfig deep-copies the parts of the configuration the admin
// view shows, masking every credential field.
func redactConfig(cfg *config.Config) *config.Config {
	out := *cfg
	if out.Server.APIKey != "" {
		out.Server.APIKey = logging.RedactValue(out.Server.APIKey)
	}

	out.Providers = make(map[string]config.Provider, len(cfg.Providers))
	for name, p := range cfg.Providers {
		if p.APIKey != "" {
			p.APIKey = logging.RedactValue(p.APIKey)
		}
		out.Providers[name] = p
	}
	return &out
}

func sortedProviderNames(cfg *config.Config) []string {
	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func queryString(r *http.Request, key, fallback string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return fallback
}
