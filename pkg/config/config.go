package config

import "time"

// Config is the root configuration structure for the gateway. It covers the
// HTTP server, the routing rules, the upstream providers with their model
// mappings, OAuth token handling, and telemetry.
type Config struct {
	// Server contains HTTP server settings including listen address,
	// timeouts, and inbound authentication.
	Server ServerConfig `yaml:"server"`

	// Router contains the model routing rules applied to every request.
	Router RouterConfig `yaml:"router"`

	// Providers contains the upstream provider definitions. Keys are
	// provider names referenced by model mappings (e.g., "anthropic",
	// "openrouter").
	Providers map[string]Provider `yaml:"providers"`

	// Models maps a requested model name to its provider candidates in
	// failover order. Keys are the model names clients send.
	Models map[string][]Candidate `yaml:"models"`

	// OAuth contains token storage and refresh settings.
	OAuth OAuthConfig `yaml:"oauth"`

	// Telemetry contains logging, metrics, and request tracing settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// Host is the interface to bind.
	// Default: "127.0.0.1"
	Host string `yaml:"host"`

	// Port is the TCP port to listen on.
	// Default: 3456
	Port int `yaml:"port"`

	// APIKey protects the inbound API when set. Clients must send it as
	// x-api-key or bearer token. Empty disables inbound authentication.
	APIKey string `yaml:"api_key"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 120s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response
	// writes. Zero means no limit, which streaming responses need.
	// Default: 0
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle limit.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown before in-flight requests are dropped.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// RouterConfig contains the model routing rules. Rule targets are model
// names that must have an entry in the models section. An empty target or
// regex disables the rule.
type RouterConfig struct {
	// Default is the model used when auto mapping rewrites a request and
	// when no other rule matches a transformed name. Required.
	Default string `yaml:"default"`

	// AutoMap is a regular expression tested against the requested model
	// name. A match rewrites the model to Default before any other rule
	// runs. Empty disables auto mapping.
	AutoMap string `yaml:"auto_map"`

	// WebSearch is the model for requests carrying a web search tool.
	WebSearch string `yaml:"websearch"`

	// SubagentTag is the tag name scanned in the system prompt to pick a
	// per-agent model.
	// Default: "CCM-SUBAGENT-MODEL"
	SubagentTag string `yaml:"subagent_tag"`

	// Think is the model for requests with extended thinking enabled.
	Think string `yaml:"think"`

	// Background routes matching requests to a cheaper model.
	Background BackgroundRule `yaml:"background"`
}

// BackgroundRule routes requests whose original model name matches Regex to
// Model. The regex is tested against the name the client sent, before any
// rewriting. An empty Regex disables the rule.
type BackgroundRule struct {
	Regex string `yaml:"regex"`
	Model string `yaml:"model"`
}

// Provider contains configuration for a single upstream provider.
type Provider struct {
	// Type selects a built-in service preset that supplies the wire
	// dialect, base URL, and any static headers. See the providers
	// package for the accepted values.
	Type string `yaml:"type"`

	// Kind is the wire dialect, "anthropic" or "openai". Only needed for
	// endpoints without a preset, such as self-hosted servers.
	Kind string `yaml:"kind"`

	// BaseURL overrides the preset endpoint.
	BaseURL string `yaml:"base_url"`

	// Auth selects the credential source: "api_key" or "oauth".
	// Default: "api_key"
	Auth string `yaml:"auth"`

	// APIKey is the static secret for api_key auth.
	APIKey string `yaml:"api_key"`

	// OAuthProvider is the token store key for oauth auth.
	// Default: the provider name.
	OAuthProvider string `yaml:"oauth_provider"`

	// Models lists the upstream model names this provider serves. Used by
	// the models listing endpoint; dispatch uses the mappings instead.
	Models []string `yaml:"models"`

	// Enabled gates the provider in and out of dispatch.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Timeout bounds one upstream attempt.
	// Default: 10m
	Timeout time.Duration `yaml:"timeout"`

	// ConnectTimeout bounds connection establishment.
	// Default: 10s
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// IsEnabled reports whether the provider takes part in dispatch. Providers
// are enabled unless the config says otherwise.
func (p Provider) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Candidate is one provider option for a model mapping. Candidates are
// tried in ascending Priority order; equal priorities keep their
// configuration order.
type Candidate struct {
	// Provider names an entry in the providers section.
	Provider string `yaml:"provider"`

	// Model is the upstream model name sent to this provider.
	Model string `yaml:"model"`

	// Priority orders failover. Lower tries first.
	// Default: 0
	Priority int `yaml:"priority"`
}

// OAuthConfig contains token storage and refresh settings.
type OAuthConfig struct {
	// TokenPath is the token store file.
	// Default: ~/.claude-code-mux/oauth_tokens.json
	TokenPath string `yaml:"token_path"`

	// RefreshBuffer refreshes tokens this long before they expire.
	// Default: 5m
	RefreshBuffer time.Duration `yaml:"refresh_buffer"`

	// SweepSchedule is a cron expression for proactive background
	// refresh of expiring tokens. Empty disables the sweep.
	SweepSchedule string `yaml:"sweep_schedule"`
}

// TelemetryConfig contains observability settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Trace   TraceConfig   `yaml:"trace"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level is the minimum level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "text"
	Format string `yaml:"format"`

	// BufferSize is how many recent log lines the in-memory ring keeps
	// for the logs endpoint.
	// Default: 1000
	BufferSize int `yaml:"buffer_size"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled exposes the metrics endpoint.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Path is the metrics endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path"`
}

// IsEnabled reports whether metrics are exposed.
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// TraceConfig controls per-attempt trace recording.
type TraceConfig struct {
	// Enabled turns trace recording on.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Backend is "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLitePath is the database file for the sqlite backend.
	// Default: ~/.claude-code-mux/traces.db
	SQLitePath string `yaml:"sqlite_path"`

	// MemoryLimit caps records kept by the memory backend.
	// Default: 10000
	MemoryLimit int `yaml:"memory_limit"`

	// RetentionDays is how long the sqlite backend keeps records.
	// Default: 30
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a cron expression for retention pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// IsEnabled reports whether trace recording is on.
func (t TraceConfig) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}
