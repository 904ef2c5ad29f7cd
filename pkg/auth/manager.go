package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/meta-introspector/claude-code-mux/pkg/config"
	"github.com/meta-introspector/claude-code-mux/pkg/telemetry/metrics"
)

// ErrTokenNotFound is returned when no stored token exists for a
// provider id. Callers test it with errors.Is.
var ErrTokenNotFound = errors.New("oauth token not found")

// stateTTL bounds how long an unconsumed authorize state stays cached.
const stateTTL = 10 * time.Minute

// Manager owns the OAuth token lifecycle: authorization flows, code
// exchange, storage, and refresh. Refreshes for one provider id are
// single-flighted, because the token endpoint invalidates a refresh
// token on first use and a duplicate concurrent exchange would strand
// one caller with a dead token. Independent provider ids refresh
// concurrently.
type Manager struct {
	store     *Store
	wire      *client
	buffer    time.Duration
	collector *metrics.Collector
	logger    *slog.Logger

	mu       sync.Mutex
	inflight map[string]*refreshCall

	statesMu sync.Mutex
	states   map[string]stateEntry
}

// refreshCall is one in-flight refresh shared by every concurrent
// caller for the same provider id.
type refreshCall struct {
	done  chan struct{}
	token Token
	err   error
}

// stateEntry is a cached state→verifier binding from AuthorizeBegin.
type stateEntry struct {
	verifier  string
	expiresAt time.Time
}

// Authorization is the begin-flow result. The caller opens URL in a
// browser and presents the returned code together with Verifier at the
// exchange step.
type Authorization struct {
	// URL is the browser-facing authorization page.
	URL string `json:"url"`

	// Verifier is the PKCE secret for the exchange step.
	Verifier string `json:"verifier"`

	// State is the CSRF value embedded in URL.
	State string `json:"state"`
}

// TokenStatus is one row of the token listing. It never carries the
// token values themselves.
type TokenStatus struct {
	ProviderID   string    `json:"provider_id"`
	ExpiresAt    time.Time `json:"expires_at"`
	Expired      bool      `json:"is_expired"`
	NeedsRefresh bool      `json:"needs_refresh"`
}

// NewManager creates a token lifecycle manager over the given store.
// The refresh buffer comes from cfg; a nil collector disables refresh
// metrics.
func NewManager(store *Store, cfg config.OAuthConfig, collector *metrics.Collector) *Manager {
	buffer := cfg.RefreshBuffer
	if buffer <= 0 {
		buffer = config.DefaultRefreshBuffer
	}

	return &Manager{
		store:     store,
		wire:      newClient(AnthropicMax()),
		buffer:    buffer,
		collector: collector,
		logger:    slog.Default().With("component", "auth"),
		inflight:  make(map[string]*refreshCall),
		states:    make(map[string]stateEntry),
	}
}

// GetValidToken returns a usable access token for the provider id,
// refreshing first when the stored one expires within the buffer.
// Returns ErrTokenNotFound when no record exists.
func (m *Manager) GetValidToken(ctx context.Context, providerID string) (string, error) {
	token, ok := m.store.Get(providerID)
	if !ok {
		return "", fmt.Errorf("provider %q: %w", providerID, ErrTokenNotFound)
	}

	if !token.NeedsRefresh(m.buffer) {
		return token.AccessToken, nil
	}

	refreshed, err := m.Refresh(ctx, providerID)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// Refresh exchanges the stored refresh token for a new pair and
// persists the result. On failure the prior record stays untouched.
// Concurrent calls for the same provider id collapse into one
// exchange; every caller receives that one result.
func (m *Manager) Refresh(ctx context.Context, providerID string) (Token, error) {
	m.mu.Lock()
	if call, ok := m.inflight[providerID]; ok {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.token, call.err
		case <-ctx.Done():
			return Token{}, ctx.Err()
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	m.inflight[providerID] = call
	m.mu.Unlock()

	call.token, call.err = m.refresh(providerID)

	m.mu.Lock()
	delete(m.inflight, providerID)
	m.mu.Unlock()
	close(call.done)

	return call.token, call.err
}

// refresh performs the network exchange and the atomic record swap.
// It runs on its own deadline, detached from any one caller's context,
// so every waiter on the shared call observes the same outcome.
func (m *Manager) refresh(providerID string) (Token, error) {
	prior, ok := m.store.Get(providerID)
	if !ok {
		return Token{}, fmt.Errorf("provider %q: %w", providerID, ErrTokenNotFound)
	}

	resp, err := m.wire.refresh(context.Background(), prior.RefreshToken)
	if err != nil {
		m.recordRefresh(providerID, "failure")
		m.logger.Warn("oauth token refresh failed",
			"provider", providerID,
			"error", err,
		)
		return Token{}, fmt.Errorf("token refresh for provider %q failed: %w", providerID, err)
	}

	token := Token{
		ProviderID:    providerID,
		AccessToken:   resp.AccessToken,
		RefreshToken:  prior.RefreshToken,
		ExpiresAt:     time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		EnterpriseURL: prior.EnterpriseURL,
	}
	// The endpoint may rotate the refresh token; keep the prior one
	// when it does not.
	if resp.RefreshToken != "" {
		token.RefreshToken = resp.RefreshToken
	}

	if err := m.store.Put(token); err != nil {
		m.recordRefresh(providerID, "failure")
		return Token{}, fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	m.recordRefresh(providerID, "success")
	if m.collector != nil {
		m.collector.SetTokenExpiry(providerID, token.ExpiresAt)
	}
	m.logger.Info("oauth token refreshed",
		"provider", providerID,
		"expires_at", token.ExpiresAt.Format(time.RFC3339),
	)

	return token, nil
}

// AuthorizeBegin starts an authorization flow of the given kind ("max"
// or "console", empty defaults to "max"). It generates the PKCE pair
// and a fresh CSRF state, caches the state→verifier binding for the
// exchange step, and returns the URL to open.
func (m *Manager) AuthorizeBegin(kind string) (Authorization, error) {
	endpoint, err := LookupEndpoint(kind)
	if err != nil {
		return Authorization{}, err
	}

	pkce, err := GeneratePKCE()
	if err != nil {
		return Authorization{}, err
	}

	state, err := randomToken()
	if err != nil {
		return Authorization{}, fmt.Errorf("failed to generate state: %w", err)
	}

	m.putState(state, pkce.Verifier)

	return Authorization{
		URL:      endpoint.AuthorizeURL(pkce.Challenge, state),
		Verifier: pkce.Verifier,
		State:    state,
	}, nil
}

// Exchange trades an authorization code for tokens and stores them
// under providerID, overwriting any prior record. The code may arrive
// as "code#state" from the callback page. An empty verifier is
// recovered from the cached state binding; the binding is consumed on
// success.
func (m *Manager) Exchange(ctx context.Context, code, verifier, providerID string) (Token, error) {
	authCode, state, _ := strings.Cut(code, "#")
	if authCode == "" {
		return Token{}, fmt.Errorf("empty authorization code")
	}

	if verifier == "" {
		cached, ok := m.lookupState(state)
		if !ok {
			return Token{}, fmt.Errorf("unknown or expired authorization state")
		}
		verifier = cached
	}

	// Older callback pages omit the state suffix; the endpoint then
	// expects the verifier in its place.
	wireState := state
	if wireState == "" {
		wireState = verifier
	}

	resp, err := m.wire.exchange(ctx, authCode, wireState, verifier)
	if err != nil {
		return Token{}, fmt.Errorf("code exchange for provider %q failed: %w", providerID, err)
	}

	m.consumeState(state)

	token := Token{
		ProviderID:   providerID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}

	if err := m.store.Put(token); err != nil {
		return Token{}, fmt.Errorf("failed to persist token: %w", err)
	}

	if m.collector != nil {
		m.collector.SetTokenExpiry(providerID, token.ExpiresAt)
	}
	m.logger.Info("oauth authorization complete",
		"provider", providerID,
		"expires_at", token.ExpiresAt.Format(time.RFC3339),
	)

	return token, nil
}

// ListTokens reports the status of every stored token, ordered by
// provider id.
func (m *Manager) ListTokens() []TokenStatus {
	tokens := m.store.List()

	statuses := make([]TokenStatus, 0, len(tokens))
	for _, token := range tokens {
		statuses = append(statuses, TokenStatus{
			ProviderID:   token.ProviderID,
			ExpiresAt:    token.ExpiresAt,
			Expired:      token.Expired(),
			NeedsRefresh: token.NeedsRefresh(m.buffer),
		})
	}

	return statuses
}

// DeleteToken removes the stored token for a provider id and persists
// the set. Deleting an absent id is a no-op.
func (m *Manager) DeleteToken(providerID string) error {
	if err := m.store.Delete(providerID); err != nil {
		return err
	}

	m.logger.Info("oauth token deleted", "provider", providerID)
	return nil
}

// putState caches a state→verifier binding and drops expired entries.
func (m *Manager) putState(state, verifier string) {
	m.statesMu.Lock()
	defer m.statesMu.Unlock()

	now := time.Now()
	for key, entry := range m.states {
		if now.After(entry.expiresAt) {
			delete(m.states, key)
		}
	}

	m.states[state] = stateEntry{
		verifier:  verifier,
		expiresAt: now.Add(stateTTL),
	}
}

// lookupState returns the verifier bound to a state, if the binding
// exists and has not expired.
func (m *Manager) lookupState(state string) (string, bool) {
	m.statesMu.Lock()
	defer m.statesMu.Unlock()

	entry, ok := m.states[state]
	if !ok || time.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.verifier, true
}

// consumeState deletes a state binding after a successful exchange.
func (m *Manager) consumeState(state string) {
	if state == "" {
		return
	}

	m.statesMu.Lock()
	defer m.statesMu.Unlock()
	delete(m.states, state)
}

// recordRefresh feeds the refresh outcome to the metrics collector.
func (m *Manager) recordRefresh(providerID, outcome string) {
	if m.collector != nil {
		m.collector.RecordOAuthRefresh(providerID, outcome)
	}
}
