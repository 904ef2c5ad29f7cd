package config

import (
	"fmt"
	"regexp"
	"sort"
	"sync/atomic"
	"time"

	"github.com/meta-introspector/claude-code-mux/pkg/providers"
)

// Snapshot is an immutable compiled view of one configuration. Routing
// regexes are compiled once and model mappings are pre-sorted, so request
// handling never recompiles or re-sorts. A reload builds a fresh Snapshot
// and swaps it into the Store; in-flight requests keep the snapshot they
// started with.
type Snapshot struct {
	cfg *Config

	loadedAt time.Time

	autoMap    *regexp.Regexp // nil when disabled
	background *regexp.Regexp // nil when disabled
	subagent   *regexp.Regexp

	candidates map[string][]Candidate
	provs      []providers.ProviderConfig
}

// NewSnapshot compiles a validated configuration. The regexes were checked
// during validation so a compile failure here means the config skipped
// Validate.
func NewSnapshot(cfg *Config) (*Snapshot, error) {
	s := &Snapshot{
		cfg:        cfg,
		loadedAt:   time.Now(),
		candidates: make(map[string][]Candidate, len(cfg.Models)),
	}

	var err error
	if cfg.Router.AutoMap != "" {
		if s.autoMap, err = regexp.Compile(cfg.Router.AutoMap); err != nil {
			return nil, fmt.Errorf("invalid auto_map regex: %w", err)
		}
	}
	if cfg.Router.Background.Regex != "" {
		if s.background, err = regexp.Compile(cfg.Router.Background.Regex); err != nil {
			return nil, fmt.Errorf("invalid background regex: %w", err)
		}
	}

	tag := regexp.QuoteMeta(cfg.Router.SubagentTag)
	s.subagent, err = regexp.Compile(fmt.Sprintf(`(?s)<%s>(.*?)</%s>`, tag, tag))
	if err != nil {
		return nil, fmt.Errorf("invalid subagent tag: %w", err)
	}

	for model, candidates := range cfg.Models {
		sorted := make([]Candidate, len(candidates))
		copy(sorted, candidates)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Priority < sorted[j].Priority
		})
		s.candidates[model] = sorted
	}

	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.provs = append(s.provs, providerConfig(name, cfg.Providers[name]))
	}

	return s, nil
}

// providerConfig converts a YAML provider entry to the adapter form.
func providerConfig(name string, p Provider) providers.ProviderConfig {
	authKind := providers.AuthAPIKey
	if p.Auth == "oauth" {
		authKind = providers.AuthOAuth
	}

	return providers.ProviderConfig{
		Name:           name,
		Type:           p.Type,
		Kind:           providers.Kind(p.Kind),
		AuthKind:       authKind,
		BaseURL:        p.BaseURL,
		APIKey:         p.APIKey,
		OAuthProvider:  p.OAuthProvider,
		Models:         p.Models,
		Enabled:        p.IsEnabled(),
		RequestTimeout: p.Timeout,
		ConnectTimeout: p.ConnectTimeout,
	}
}

// Config returns the underlying configuration. Callers must not modify it.
func (s *Snapshot) Config() *Config {
	return s.cfg
}

// LoadedAt returns when this snapshot was built.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// Router returns the routing rules.
func (s *Snapshot) Router() *RouterConfig {
	return &s.cfg.Router
}

// AutoMap returns the compiled auto mapping regex, or nil when disabled.
func (s *Snapshot) AutoMap() *regexp.Regexp {
	return s.autoMap
}

// Background returns the compiled background rule regex, or nil when
// disabled.
func (s *Snapshot) Background() *regexp.Regexp {
	return s.background
}

// SubagentTag returns the compiled tag extraction regex. The single capture
// group holds the model name.
func (s *Snapshot) SubagentTag() *regexp.Regexp {
	return s.subagent
}

// Candidates returns the provider candidates for a model in failover order:
// ascending priority, configuration order on ties. Returns nil for an
// unmapped model. Callers must not modify the returned slice.
func (s *Snapshot) Candidates(model string) []Candidate {
	return s.candidates[model]
}

// ModelNames returns the mapped model names in sorted order.
func (s *Snapshot) ModelNames() []string {
	names := make([]string, 0, len(s.candidates))
	for name := range s.candidates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProviderConfigs returns the resolved provider configurations in name
// order, ready for the adapter factory.
func (s *Snapshot) ProviderConfigs() []providers.ProviderConfig {
	out := make([]providers.ProviderConfig, len(s.provs))
	copy(out, s.provs)
	return out
}

// Store holds the current configuration snapshot. Reads are lock-free;
// a reload swaps the whole snapshot at once.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store holding the given snapshot.
func NewStore(snapshot *Snapshot) *Store {
	s := &Store{}
	s.current.Store(snapshot)
	return s
}

// Load returns the current snapshot.
func (s *Store) Load() *Snapshot {
	return s.current.Load()
}

// Swap installs a new snapshot and returns the previous one.
func (s *Store) Swap(snapshot *Snapshot) *Snapshot {
	return s.current.Swap(snapshot)
}
