package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/meta-introspector/claude-code-mux/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{APIKey: "sk-local-test"},
		Router: config.RouterConfig{Default: "claude-sonnet-4"},
		Providers: map[string]config.Provider{
			"anthropic": {Type: "anthropic", APIKey: "sk-ant-test"},
		},
		Models: map[string][]config.Candidate{
			"claude-sonnet-4": {
				{Provider: "anthropic", Model: "claude-sonnet-4", Priority: 1},
			},
		},
		OAuth: config.OAuthConfig{TokenPath: filepath.Join(dir, "tokens.json")},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	srv, err := New(testConfig(t), Options{Version: "test"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() {
		if srv.recorder != nil {
			srv.recorder.Close()
		}
		if srv.traces != nil {
			srv.traces.Close()
		}
	})
	return srv
}

func TestHandlerRoutes(t *testing.T) {
	handler := newTestServer(t).Handler()

	tests := []struct {
		name   string
		method string
		path   string
		apiKey string
		want   int
	}{
		{"health open", http.MethodGet, "/health", "", http.StatusOK},
		{"metrics open", http.MethodGet, "/metrics", "", http.StatusOK},
		{"models without key", http.MethodGet, "/v1/models", "", http.StatusUnauthorized},
		{"models with key", http.MethodGet, "/v1/models", "sk-local-test", http.StatusOK},
		{"models with wrong key", http.MethodGet, "/v1/models", "sk-wrong", http.StatusUnauthorized},
		{"oauth tokens open", http.MethodGet, "/oauth/tokens", "", http.StatusOK},
		{"admin config open", http.MethodGet, "/api/config", "", http.StatusOK},
		{"unknown route", http.MethodGet, "/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.apiKey != "" {
				req.Header.Set("x-api-key", tt.apiKey)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
			}
		})
	}
}

func TestHandlerRequestID(t *testing.T) {
	handler := newTestServer(t).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header on response")
	}
}

func TestInstallSwapsSnapshot(t *testing.T) {
	srv := newTestServer(t)

	before := srv.Gateway().Snapshot()
	if before == nil {
		t.Fatal("expected snapshot after New")
	}
	if got := before.ModelNames(); len(got) != 1 || got[0] != "claude-sonnet-4" {
		t.Fatalf("ModelNames = %v, want [claude-sonnet-4]", got)
	}

	cfg := testConfig(t)
	cfg.Models["claude-haiku-4"] = []config.Candidate{
		{Provider: "anthropic", Model: "claude-haiku-4", Priority: 1},
	}
	if err := srv.install(cfg); err != nil {
		t.Fatalf("install failed: %v", err)
	}

	after := srv.Gateway().Snapshot()
	if after == before {
		t.Fatal("expected a new snapshot after install")
	}
	if got := len(after.ModelNames()); got != 2 {
		t.Errorf("len(ModelNames) = %d, want 2", got)
	}
}

func TestRequestShutdownIdempotent(t *testing.T) {
	srv := newTestServer(t)

	srv.RequestShutdown()
	srv.RequestShutdown()

	select {
	case <-srv.shutdownChan:
	default:
		t.Error("expected shutdown channel to be closed")
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	srv := newTestServer(t)

	if srv.IsRunning() {
		t.Error("IsRunning = true before Start")
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown before Start returned %v", err)
	}
}
