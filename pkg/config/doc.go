// Package config provides configuration management for the gateway.
//
// This package handles loading, validating, and watching configuration from
// a YAML file with environment variable overrides. The file lives at
// ~/.claude-code-mux/config.yaml by default and defines the HTTP server,
// the routing rules, the upstream providers with their model mappings, and
// telemetry.
//
// # Configuration Loading
//
//	cfg, err := config.Load(config.DefaultPath())
//
// Values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CCM_SECTION_FIELD.
// For example:
//
//   - CCM_SERVER_PORT overrides server.port
//   - CCM_PROVIDERS_OPENROUTER_API_KEY overrides providers.openrouter.api_key
//   - CCM_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Snapshots
//
// Request handling never reads the raw Config. A validated Config is
// compiled into an immutable Snapshot (pre-compiled routing regexes,
// pre-sorted model mappings, resolved provider configurations) held in a
// Store. Reloads build a new Snapshot and swap it atomically; requests in
// flight keep the snapshot they started with, so a reload never mixes old
// and new rules within one request.
//
// # Watching
//
// Watcher reloads the configuration when the file changes:
//
//	w, err := config.NewWatcher(path)
//	go w.Watch(ctx, func() error {
//	    cfg, err := config.Load(path)
//	    if err != nil {
//	        return err
//	    }
//	    snapshot, err := config.NewSnapshot(cfg)
//	    if err != nil {
//	        return err
//	    }
//	    store.Swap(snapshot)
//	    return nil
//	})
//
// A failed reload keeps the previous configuration active.
package config
