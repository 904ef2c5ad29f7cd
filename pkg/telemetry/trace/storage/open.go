package storage

import (
	"fmt"

	"github.com/meta-introspector/claude-code-mux/pkg/config"
	"github.com/meta-introspector/claude-code-mux/pkg/telemetry/trace"
)

// Open builds the storage backend named by the trace configuration.
func Open(cfg config.TraceConfig) (trace.Storage, error) {
	switch cfg.Backend {
	case "sqlite":
		return NewSQLiteStorage(DefaultSQLiteConfig(cfg.SQLitePath))
	case "memory", "":
		return NewMemoryStorage(cfg.MemoryLimit), nil
	default:
		return nil, trace.NewStorageError(cfg.Backend, "open", fmt.Errorf("unknown trace backend"))
	}
}
