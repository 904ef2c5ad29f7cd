package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file. It applies default values,
// environment variable overrides, and validates the result.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides (CCM_SECTION_FIELD)
//  4. Validate final configuration
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides. Variables use
// the format CCM_SECTION_FIELD and take precedence over file values.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("CCM_SERVER_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv("CCM_SERVER_PORT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = i
		}
	}
	if val := os.Getenv("CCM_SERVER_API_KEY"); val != "" {
		cfg.Server.APIKey = val
	}

	if val := os.Getenv("CCM_ROUTER_DEFAULT"); val != "" {
		cfg.Router.Default = val
	}

	if val := os.Getenv("CCM_OAUTH_TOKEN_PATH"); val != "" {
		cfg.OAuth.TokenPath = val
	}

	if val := os.Getenv("CCM_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("CCM_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}

	// Provider overrides use the uppercased provider name:
	// CCM_PROVIDERS_<NAME>_API_KEY and friends.
	for name, provider := range cfg.Providers {
		prefix := fmt.Sprintf("CCM_PROVIDERS_%s_", envName(name))

		if val := os.Getenv(prefix + "API_KEY"); val != "" {
			provider.APIKey = val
		}
		if val := os.Getenv(prefix + "BASE_URL"); val != "" {
			provider.BaseURL = val
		}
		if val := os.Getenv(prefix + "TIMEOUT"); val != "" {
			if d, err := time.ParseDuration(val); err == nil {
				provider.Timeout = d
			}
		}

		cfg.Providers[name] = provider
	}
}

// envName converts a provider name to its environment variable form.
// Dashes and dots become underscores: "z.ai" reads CCM_PROVIDERS_Z_AI_*.
func envName(name string) string {
	name = strings.ToUpper(name)
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, ".", "_")
	return name
}

// starterConfig is the annotated configuration written by WriteStarter.
const starterConfig = `# claude-code-mux configuration.
#
# Point your client at the gateway:
#   export ANTHROPIC_BASE_URL=http://127.0.0.1:3456

server:
  host: 127.0.0.1
  port: 3456
  # api_key: change-me     # require this key on inbound requests

router:
  # Model used when auto_map rewrites a request.
  default: claude-sonnet-4-5
  # Requests whose model matches this regex are rewritten to the default.
  auto_map: "^claude-"
  # Model for requests that carry a web search tool.
  websearch: claude-sonnet-4-5
  # Model for requests with extended thinking enabled.
  think: claude-sonnet-4-5
  # Cheap model for background tasks, matched on the original model name.
  background:
    regex: "haiku"
    model: claude-sonnet-4-5

providers:
  anthropic:
    type: anthropic
    auth: oauth          # run: ccm oauth login anthropic
  # openrouter:
  #   type: openrouter
  #   api_key: sk-or-...

models:
  claude-sonnet-4-5:
    - provider: anthropic
      model: claude-sonnet-4-5
      priority: 1
    # - provider: openrouter
    #   model: anthropic/claude-sonnet-4.5
    #   priority: 2

telemetry:
  logging:
    level: info
    format: text
`

// WriteStarter writes the starter configuration to path, creating the
// parent directory. It refuses to overwrite an existing file.
func WriteStarter(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file %q already exists", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create configuration directory: %w", err)
	}

	// The file may hold API keys, keep it owner-only.
	if err := os.WriteFile(path, []byte(starterConfig), 0o600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	return nil
}
