package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/meta-introspector/claude-code-mux/pkg/config"
)

// Token is one stored OAuth credential set, keyed by the provider id it
// authenticates.
type Token struct {
	// ProviderID is the token store key, usually a provider name from
	// the configuration.
	ProviderID string `json:"provider_id"`

	// AccessToken is the bearer token sent upstream.
	AccessToken string `json:"access_token"`

	// RefreshToken is exchanged for a new pair when the access token
	// expires.
	RefreshToken string `json:"refresh_token"`

	// ExpiresAt is when the access token stops working.
	ExpiresAt time.Time `json:"expires_at"`

	// EnterpriseURL overrides the API host for enterprise deployments.
	EnterpriseURL string `json:"enterprise_url,omitempty"`
}

// Expired reports whether the access token's lifetime has passed.
func (t Token) Expired() bool {
	return !time.Now().Before(t.ExpiresAt)
}

// NeedsRefresh reports whether the token expires within the buffer, so
// a refresh should happen before using it.
func (t Token) NeedsRefresh(buffer time.Duration) bool {
	return !time.Now().Add(buffer).Before(t.ExpiresAt)
}

// Store persists OAuth tokens as a JSON object keyed by provider id.
// Every write rewrites the full set through a temp file rename, so a
// reader never observes a torn record. The file is owner-only.
type Store struct {
	path string

	mu     sync.RWMutex
	tokens map[string]Token
}

// NewStore opens the token store at path, loading any existing file.
// The parent directory is created when missing.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = filepath.Join(config.DefaultDir(), config.DefaultTokenFile)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create token directory: %w", err)
	}

	store := &Store{
		path:   path,
		tokens: make(map[string]Token),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	if err := json.Unmarshal(data, &store.tokens); err != nil {
		return nil, fmt.Errorf("failed to parse token file %q: %w", path, err)
	}

	return store, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the token for a provider id.
func (s *Store) Get(providerID string) (Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.tokens[providerID]
	return token, ok
}

// Put inserts or replaces the token for its provider id and persists
// the set.
func (s *Store) Put(token Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token.ProviderID] = token
	return s.persist()
}

// Delete removes the token for a provider id and persists the set.
// Deleting an absent id is a no-op.
func (s *Store) Delete(providerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[providerID]; !ok {
		return nil
	}

	delete(s.tokens, providerID)
	return s.persist()
}

// List returns all tokens ordered by provider id.
func (s *Store) List() []Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := make([]Token, 0, len(s.tokens))
	for _, token := range s.tokens {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].ProviderID < tokens[j].ProviderID
	})

	return tokens
}

// persist writes the full token set atomically. Callers hold s.mu.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize tokens: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".oauth_tokens-*")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}

	// The file holds credentials, keep it owner-only.
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to set token file mode: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close token file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace token file: %w", err)
	}

	return nil
}
