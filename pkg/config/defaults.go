package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values for configuration fields.
const (
	// Server defaults
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 3456
	DefaultReadTimeout     = 120 * time.Second
	DefaultWriteTimeout    = 0 * time.Second // streaming responses need no write deadline
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Router defaults
	DefaultSubagentTag = "CCM-SUBAGENT-MODEL"

	// Provider defaults
	DefaultProviderTimeout = 10 * time.Minute
	DefaultConnectTimeout  = 10 * time.Second

	// OAuth defaults
	DefaultTokenFile     = "oauth_tokens.json"
	DefaultRefreshBuffer = 5 * time.Minute

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "text"
	DefaultLogBufferSize      = 1000
	DefaultMetricsPath        = "/metrics"
	DefaultTraceBackend       = "memory"
	DefaultTraceFile          = "traces.db"
	DefaultTraceMemoryLimit   = 10000
	DefaultTraceRetention     = 30
	DefaultTracePruneSchedule = "0 3 * * *"
)

// DefaultDir returns the gateway's home directory, ~/.claude-code-mux.
// Falls back to a relative directory when the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".claude-code-mux"
	}
	return filepath.Join(home, ".claude-code-mux")
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// ApplyDefaults applies default values to a Config struct. It sets defaults
// for any fields that have zero values and is safe to call more than once.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Router defaults
	if cfg.Router.SubagentTag == "" {
		cfg.Router.SubagentTag = DefaultSubagentTag
	}

	// Provider defaults, applied to each provider
	for name, provider := range cfg.Providers {
		if provider.Auth == "" {
			provider.Auth = "api_key"
		}
		if provider.Auth == "oauth" && provider.OAuthProvider == "" {
			provider.OAuthProvider = name
		}
		if provider.Timeout == 0 {
			provider.Timeout = DefaultProviderTimeout
		}
		if provider.ConnectTimeout == 0 {
			provider.ConnectTimeout = DefaultConnectTimeout
		}
		cfg.Providers[name] = provider
	}

	// OAuth defaults
	if cfg.OAuth.TokenPath == "" {
		cfg.OAuth.TokenPath = filepath.Join(DefaultDir(), DefaultTokenFile)
	}
	if cfg.OAuth.RefreshBuffer == 0 {
		cfg.OAuth.RefreshBuffer = DefaultRefreshBuffer
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Logging.BufferSize == 0 {
		cfg.Telemetry.Logging.BufferSize = DefaultLogBufferSize
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Trace.Backend == "" {
		cfg.Telemetry.Trace.Backend = DefaultTraceBackend
	}
	if cfg.Telemetry.Trace.SQLitePath == "" {
		cfg.Telemetry.Trace.SQLitePath = filepath.Join(DefaultDir(), DefaultTraceFile)
	}
	if cfg.Telemetry.Trace.MemoryLimit == 0 {
		cfg.Telemetry.Trace.MemoryLimit = DefaultTraceMemoryLimit
	}
	if cfg.Telemetry.Trace.RetentionDays == 0 {
		cfg.Telemetry.Trace.RetentionDays = DefaultTraceRetention
	}
	if cfg.Telemetry.Trace.PruneSchedule == "" {
		cfg.Telemetry.Trace.PruneSchedule = DefaultTracePruneSchedule
	}
}
