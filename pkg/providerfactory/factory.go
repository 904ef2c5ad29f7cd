package providerfactory

import (
	"fmt"
	"log/slog"

	"github.com/meta-introspector/claude-code-mux/pkg/providers"
	"github.com/meta-introspector/claude-code-mux/pkg/providers/anthropic"
	"github.com/meta-introspector/claude-code-mux/pkg/providers/openai"
)

// NewAdapter creates the adapter for one provider configuration.
//
// The config.Type field selects a service preset (see providers.KnownTypes)
// that supplies the wire dialect, the default base URL and any static
// headers the service wants. Explicit config values override the preset.
// A config without a known type must set Kind and BaseURL itself, which is
// how self-hosted OpenAI-compatible endpoints are wired in.
func NewAdapter(config providers.ProviderConfig) (providers.Adapter, error) {
	var extraHeaders map[string]string

	if preset, ok := providers.PresetFor(config.Type); ok {
		if config.Kind == "" {
			config.Kind = preset.Kind
		}
		if config.BaseURL == "" {
			config.BaseURL = preset.BaseURL
		}
		extraHeaders = preset.Headers
	} else if config.Kind == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "type",
			Message:  fmt.Sprintf("unknown provider type %q and no kind set", config.Type),
		}
	}

	if config.AuthKind == "" {
		config.AuthKind = providers.AuthAPIKey
	}
	if config.AuthKind == providers.AuthAPIKey && config.APIKey == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_key",
			Message:  "api_key auth requires a key",
		}
	}
	if config.AuthKind == providers.AuthOAuth && config.OAuthProvider == "" {
		config.OAuthProvider = config.Name
	}

	slog.Debug("creating provider adapter",
		"name", config.Name,
		"type", config.Type,
		"kind", config.Kind,
		"base_url", config.BaseURL,
	)

	switch config.Kind {
	case providers.KindAnthropic:
		return anthropic.New(config, extraHeaders)

	case providers.KindOpenAI:
		return openai.New(config, extraHeaders)

	default:
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "kind",
			Message:  fmt.Sprintf("unsupported provider kind %q", config.Kind),
		}
	}
}
