package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meta-introspector/claude-code-mux/pkg/config"
	"github.com/meta-introspector/claude-code-mux/pkg/telemetry/metrics"
)

// newTestManager wires a manager to a fake token endpoint and a store
// in a temp directory.
func newTestManager(t *testing.T, handler http.HandlerFunc) *Manager {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := NewStore(filepath.Join(t.TempDir(), "oauth_tokens.json"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	manager := NewManager(store, config.OAuthConfig{RefreshBuffer: 5 * time.Minute}, nil)
	manager.wire = newClient(Endpoint{
		ClientID:    "test-client",
		AuthURL:     "https://auth.example.com/authorize",
		TokenURL:    server.URL,
		RedirectURI: "https://auth.example.com/callback",
		Scopes:      []string{"user:inference"},
	})
	return manager
}

// decodeGrant reads one JSON token request body.
func decodeGrant(t *testing.T, r *http.Request) map[string]string {
	t.Helper()

	var grant map[string]string
	if err := json.NewDecoder(r.Body).Decode(&grant); err != nil {
		t.Errorf("bad grant body: %v", err)
	}
	return grant
}

// writeTokenResponse emits a token endpoint success payload.
func writeTokenResponse(w http.ResponseWriter, access, refresh string, expiresIn int64) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"expires_in":    expiresIn,
	})
}

// storedToken seeds the manager's store with a token expiring at the
// given offset from now.
func storedToken(t *testing.T, m *Manager, providerID string, expiresIn time.Duration) Token {
	t.Helper()

	token := Token{
		ProviderID:   providerID,
		AccessToken:  "access-" + providerID,
		RefreshToken: "refresh-" + providerID,
		ExpiresAt:    time.Now().Add(expiresIn),
	}
	if err := m.store.Put(token); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	return token
}

func TestManager_GetValidToken_Fresh(t *testing.T) {
	manager := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("fresh token triggered a network call")
	})
	storedToken(t, manager, "anthropic", time.Hour)

	got, err := manager.GetValidToken(context.Background(), "anthropic")
	if err != nil {
		t.Fatalf("GetValidToken failed: %v", err)
	}
	if got != "access-anthropic" {
		t.Errorf("token = %q, want access-anthropic", got)
	}
}

func TestManager_GetValidToken_NotFound(t *testing.T) {
	manager := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected network call")
	})

	_, err := manager.GetValidToken(context.Background(), "anthropic")
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("Expected ErrTokenNotFound, got %v", err)
	}
}

func TestManager_GetValidToken_RefreshesExpiring(t *testing.T) {
	manager := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		grant := decodeGrant(t, r)
		if grant["grant_type"] != "refresh_token" {
			t.Errorf("grant_type = %q, want refresh_token", grant["grant_type"])
		}
		if grant["refresh_token"] != "refresh-anthropic" {
			t.Errorf("refresh_token = %q, want refresh-anthropic", grant["refresh_token"])
		}
		if grant["client_id"] != "test-client" {
			t.Errorf("client_id = %q, want test-client", grant["client_id"])
		}
		writeTokenResponse(w, "access-new", "refresh-new", 3600)
	})
	storedToken(t, manager, "anthropic", time.Minute)

	got, err := manager.GetValidToken(context.Background(), "anthropic")
	if err != nil {
		t.Fatalf("GetValidToken failed: %v", err)
	}
	if got != "access-new" {
		t.Errorf("token = %q, want access-new", got)
	}

	stored, _ := manager.store.Get("anthropic")
	if stored.AccessToken != "access-new" {
		t.Errorf("stored access token = %q, want access-new", stored.AccessToken)
	}
	if stored.RefreshToken != "refresh-new" {
		t.Errorf("stored refresh token = %q, want refresh-new", stored.RefreshToken)
	}
	wantExpiry := time.Now().Add(time.Hour)
	if stored.ExpiresAt.Before(wantExpiry.Add(-time.Minute)) || stored.ExpiresAt.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("stored expiry = %v, want about %v", stored.ExpiresAt, wantExpiry)
	}
}

func TestManager_Refresh_SingleFlight(t *testing.T) {
	var calls int32
	manager := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(100 * time.Millisecond)
		writeTokenResponse(w, "access-new", "refresh-new", 3600)
	})
	storedToken(t, manager, "anthropic", -time.Minute)

	const waiters = 10
	results := make([]string, waiters)
	errs := make([]error, waiters)

	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = manager.GetValidToken(context.Background(), "anthropic")
		}(i)
	}
	wg.Wait()

	for i := 0; i < waiters; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if results[i] != "access-new" {
			t.Errorf("caller %d token = %q, want access-new", i, results[i])
		}
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected 1 network exchange, got %d", got)
	}
}

func TestManager_Refresh_IndependentProviders(t *testing.T) {
	arrived := make(chan string, 2)
	release := make(chan struct{})
	manager := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		grant := decodeGrant(t, r)
		arrived <- grant["refresh_token"]
		<-release
		writeTokenResponse(w, "access-for-"+grant["refresh_token"], "", 3600)
	})
	storedToken(t, manager, "anthropic", -time.Minute)
	storedToken(t, manager, "zai", -time.Minute)

	var wg sync.WaitGroup
	tokens := make(map[string]string)
	var mu sync.Mutex
	for _, id := range []string{"anthropic", "zai"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			token, err := manager.GetValidToken(context.Background(), id)
			if err != nil {
				t.Errorf("GetValidToken(%s) failed: %v", id, err)
			}
			mu.Lock()
			tokens[id] = token
			mu.Unlock()
		}(id)
	}

	// Both exchanges must be in flight at once; if refreshes were
	// serialized across provider ids the second would never arrive
	// while the first blocks.
	for i := 0; i < 2; i++ {
		select {
		case <-arrived:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for concurrent refreshes")
		}
	}
	close(release)
	wg.Wait()

	if tokens["anthropic"] != "access-for-refresh-anthropic" {
		t.Errorf("anthropic token = %q", tokens["anthropic"])
	}
	if tokens["zai"] != "access-for-refresh-zai" {
		t.Errorf("zai token = %q", tokens["zai"])
	}
}

func TestManager_Refresh_FailureKeepsPrior(t *testing.T) {
	manager := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	})
	prior := storedToken(t, manager, "anthropic", time.Minute)

	if _, err := manager.Refresh(context.Background(), "anthropic"); err == nil {
		t.Fatal("Expected refresh error, got nil")
	}

	stored, ok := manager.store.Get("anthropic")
	if !ok {
		t.Fatal("prior record disappeared after failed refresh")
	}
	if stored.AccessToken != prior.AccessToken || stored.RefreshToken != prior.RefreshToken {
		t.Errorf("prior record changed after failed refresh: %+v", stored)
	}
}

func TestManager_Refresh_KeepsPriorRefreshToken(t *testing.T) {
	manager := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		writeTokenResponse(w, "access-new", "", 3600)
	})
	storedToken(t, manager, "anthropic", time.Minute)

	refreshed, err := manager.Refresh(context.Background(), "anthropic")
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if refreshed.RefreshToken != "refresh-anthropic" {
		t.Errorf("refresh token = %q, want prior refresh-anthropic", refreshed.RefreshToken)
	}
}

func TestManager_Refresh_NotFound(t *testing.T) {
	manager := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected network call")
	})

	_, err := manager.Refresh(context.Background(), "missing")
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("Expected ErrTokenNotFound, got %v", err)
	}
}

func TestManager_AuthorizeBegin(t *testing.T) {
	manager := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected network call")
	})

	authz, err := manager.AuthorizeBegin(FlowMax)
	if err != nil {
		t.Fatalf("AuthorizeBegin failed: %v", err)
	}

	parsed, err := url.Parse(authz.URL)
	if err != nil {
		t.Fatalf("authorization URL does not parse: %v", err)
	}
	params := parsed.Query()

	if got := params.Get("state"); got != authz.State {
		t.Errorf("state param = %q, want %q", got, authz.State)
	}
	sum := sha256.Sum256([]byte(authz.Verifier))
	wantChallenge := base64.RawURLEncoding.EncodeToString(sum[:])
	if got := params.Get("code_challenge"); got != wantChallenge {
		t.Errorf("code_challenge = %q, want hash of the returned verifier", got)
	}
	if params.Get("code_challenge_method") != "S256" {
		t.Errorf("code_challenge_method = %q, want S256", params.Get("code_challenge_method"))
	}

	verifier, ok := manager.lookupState(authz.State)
	if !ok {
		t.Fatal("state binding was not cached")
	}
	if verifier != authz.Verifier {
		t.Errorf("cached verifier = %q, want %q", verifier, authz.Verifier)
	}
}

func TestManager_AuthorizeBegin_UnknownKind(t *testing.T) {
	manager := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {})

	if _, err := manager.AuthorizeBegin("github"); err == nil {
		t.Fatal("Expected error for unknown flow kind, got nil")
	}
}

func TestManager_Exchange(t *testing.T) {
	manager := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		grant := decodeGrant(t, r)
		want := map[string]string{
			"code":          "the-code",
			"state":         "the-state",
			"grant_type":    "authorization_code",
			"client_id":     "test-client",
			"redirect_uri":  "https://auth.example.com/callback",
			"code_verifier": "the-verifier",
		}
		for key, value := range want {
			if grant[key] != value {
				t.Errorf("grant %s = %q, want %q", key, grant[key], value)
			}
		}
		writeTokenResponse(w, "access-1", "refresh-1", 3600)
	})

	token, err := manager.Exchange(context.Background(), "the-code#the-state", "the-verifier", "anthropic")
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if token.AccessToken != "access-1" || token.RefreshToken != "refresh-1" {
		t.Errorf("token = %+v", token)
	}
	if token.ProviderID != "anthropic" {
		t.Errorf("ProviderID = %q, want anthropic", token.ProviderID)
	}

	stored, ok := manager.store.Get("anthropic")
	if !ok {
		t.Fatal("exchanged token was not stored")
	}
	if stored.AccessToken != "access-1" {
		t.Errorf("stored access token = %q, want access-1", stored.AccessToken)
	}
}

func TestManager_Exchange_StateDefaultsToVerifier(t *testing.T) {
	manager := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		grant := decodeGrant(t, r)
		if grant["state"] != "the-verifier" {
			t.Errorf("state = %q, want the verifier", grant["state"])
		}
		writeTokenResponse(w, "access-1", "refresh-1", 3600)
	})

	if _, err := manager.Exchange(context.Background(), "bare-code", "the-verifier", "anthropic"); err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
}

func TestManager_Exchange_VerifierFromCachedState(t *testing.T) {
	manager := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		grant := decodeGrant(t, r)
		if grant["code_verifier"] != "cached-verifier" {
			t.Errorf("code_verifier = %q, want cached-verifier", grant["code_verifier"])
		}
		writeTokenResponse(w, "access-1", "refresh-1", 3600)
	})
	manager.putState("st8", "cached-verifier")

	if _, err := manager.Exchange(context.Background(), "the-code#st8", "", "anthropic"); err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}

	if _, ok := manager.lookupState("st8"); ok {
		t.Error("state binding survived a successful exchange")
	}

	if _, err := manager.Exchange(context.Background(), "the-code#st8", "", "anthropic"); err == nil {
		t.Fatal("Expected error reusing a consumed state, got nil")
	}
}

func TestManager_Exchange_UnknownState(t *testing.T) {
	manager := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected network call")
	})

	if _, err := manager.Exchange(context.Background(), "the-code#unknown", "", "anthropic"); err == nil {
		t.Fatal("Expected error for unknown state, got nil")
	}
}

func TestManager_Exchange_EmptyCode(t *testing.T) {
	manager := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected network call")
	})

	if _, err := manager.Exchange(context.Background(), "", "v", "anthropic"); err == nil {
		t.Fatal("Expected error for empty code, got nil")
	}
	if _, err := manager.Exchange(context.Background(), "#state-only", "v", "anthropic"); err == nil {
		t.Fatal("Expected error for code with only a state, got nil")
	}
}

func TestManager_Exchange_Overwrites(t *testing.T) {
	manager := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		writeTokenResponse(w, "access-2", "refresh-2", 3600)
	})
	storedToken(t, manager, "anthropic", time.Hour)

	if _, err := manager.Exchange(context.Background(), "the-code", "v", "anthropic"); err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}

	stored, _ := manager.store.Get("anthropic")
	if stored.AccessToken != "access-2" {
		t.Errorf("stored access token = %q, want the overwriting access-2", stored.AccessToken)
	}
}

func TestManager_ListTokens(t *testing.T) {
	manager := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {})
	storedToken(t, manager, "fresh", time.Hour)
	storedToken(t, manager, "expired", -time.Hour)
	storedToken(t, manager, "expiring", 2*time.Minute)

	statuses := manager.ListTokens()
	if len(statuses) != 3 {
		t.Fatalf("Expected 3 statuses, got %d", len(statuses))
	}

	byID := make(map[string]TokenStatus)
	for _, status := range statuses {
		byID[status.ProviderID] = status
	}

	if s := byID["fresh"]; s.Expired || s.NeedsRefresh {
		t.Errorf("fresh status = %+v, want neither expired nor needing refresh", s)
	}
	if s := byID["expired"]; !s.Expired || !s.NeedsRefresh {
		t.Errorf("expired status = %+v, want expired and needing refresh", s)
	}
	if s := byID["expiring"]; s.Expired || !s.NeedsRefresh {
		t.Errorf("expiring status = %+v, want only needing refresh", s)
	}

	if statuses[0].ProviderID != "expired" || statuses[1].ProviderID != "expiring" || statuses[2].ProviderID != "fresh" {
		t.Errorf("statuses not sorted by provider id: %v", statuses)
	}
}

func TestManager_DeleteToken(t *testing.T) {
	manager := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {})
	storedToken(t, manager, "anthropic", time.Hour)

	if err := manager.DeleteToken("anthropic"); err != nil {
		t.Fatalf("DeleteToken failed: %v", err)
	}
	if _, ok := manager.store.Get("anthropic"); ok {
		t.Error("token still present after DeleteToken")
	}

	if err := manager.DeleteToken("missing"); err != nil {
		t.Errorf("DeleteToken of absent id failed: %v", err)
	}
}

func TestManager_StateCachePurgesExpired(t *testing.T) {
	manager := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {})

	manager.statesMu.Lock()
	manager.states["old"] = stateEntry{verifier: "v", expiresAt: time.Now().Add(-time.Minute)}
	manager.statesMu.Unlock()

	if _, ok := manager.lookupState("old"); ok {
		t.Error("expired state binding still resolves")
	}

	manager.putState("new", "v2")

	manager.statesMu.Lock()
	defer manager.statesMu.Unlock()
	if _, ok := manager.states["old"]; ok {
		t.Error("expired state binding survived a purge")
	}
	if len(manager.states) != 1 {
		t.Errorf("Expected 1 cached state, got %d", len(manager.states))
	}
}

func TestManager_WithCollector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeTokenResponse(w, "access-new", "refresh-new", 3600)
	}))
	defer server.Close()

	store, err := NewStore(filepath.Join(t.TempDir(), "oauth_tokens.json"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	enabled := true
	collector := metrics.NewCollector(config.MetricsConfig{Enabled: &enabled}, nil)
	manager := NewManager(store, config.OAuthConfig{}, collector)
	manager.wire = newClient(Endpoint{ClientID: "test-client", TokenURL: server.URL})

	token := Token{
		ProviderID:   "anthropic",
		AccessToken:  "access-old",
		RefreshToken: "refresh-old",
		ExpiresAt:    time.Now().Add(time.Minute),
	}
	if err := store.Put(token); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if _, err := manager.Refresh(context.Background(), "anthropic"); err != nil {
		t.Fatalf("Refresh with collector failed: %v", err)
	}
}
