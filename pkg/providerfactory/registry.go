package providerfactory

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/meta-introspector/claude-code-mux/pkg/providers"
)

// Registry holds the constructed adapters for one configuration snapshot.
// It is immutable after construction: a configuration reload builds a new
// Registry and swaps it in whole, so readers never observe a half-updated
// provider set.
type Registry struct {
	adapters map[string]providers.Adapter
	names    []string

	closeOnce sync.Once
	closeErr  error
}

// NewRegistry constructs adapters for every enabled provider. Disabled
// providers are skipped, not errors. A provider that fails to construct
// fails the whole registry so a bad reload never replaces a working set.
func NewRegistry(configs []providers.ProviderConfig) (*Registry, error) {
	r := &Registry{adapters: make(map[string]providers.Adapter, len(configs))}

	for _, config := range configs {
		if !config.Enabled {
			slog.Debug("skipping disabled provider", "provider", config.Name)
			continue
		}

		if _, ok := r.adapters[config.Name]; ok {
			r.Close()
			return nil, &providers.ConfigError{
				Provider: config.Name,
				Field:    "name",
				Message:  "duplicate provider name",
			}
		}

		adapter, err := NewAdapter(config)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to build provider %q: %w", config.Name, err)
		}

		r.adapters[config.Name] = adapter
		r.names = append(r.names, config.Name)
	}

	sort.Strings(r.names)

	slog.Info("provider registry built", "providers", len(r.names))
	return r, nil
}

// Get returns the adapter for a provider name.
func (r *Registry) Get(name string) (providers.Adapter, bool) {
	adapter, ok := r.adapters[name]
	return adapter, ok
}

// Names returns the enabled provider names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of enabled providers.
func (r *Registry) Len() int {
	return len(r.adapters)
}

// Close releases every adapter's connections. Safe to call more than once.
func (r *Registry) Close() error {
	r.closeOnce.Do(func() {
		for name, adapter := range r.adapters {
			if err := adapter.Close(); err != nil {
				slog.Error("error closing provider", "provider", name, "error", err)
				if r.closeErr == nil {
					r.closeErr = err
				}
			}
		}
	})
	return r.closeErr
}
