// Package server assembles the gateway and serves its HTTP surface.
//
// Server is the composition root: it wires the structured logger with
// its in-memory ring buffer, the Prometheus collector, the trace
// recorder with its retention pruner, the OAuth token manager with its
// refresh sweeper, the dispatcher, and the orchestrator, then exposes
// them through a single route table.
//
// # Basic Usage
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv, err := server.New(cfg, server.Options{ConfigPath: path})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// Start blocks until SIGINT/SIGTERM, context cancellation, a fatal
// listen error, or RequestShutdown. Shutdown drains in-flight requests
// up to the configured shutdown timeout, then stops the watcher,
// sweeper, pruner, and trace recorder and releases the adapter
// registry.
//
// # Routes
//
//   - POST /v1/messages                  completion (streaming and non-streaming)
//   - POST /v1/messages/count_tokens     token counting
//   - POST /v1/chat/completions          OpenAI-compatible completion
//   - GET  /v1/models                    configured model listing
//   - GET  /health                       liveness and provider summary
//   - POST /oauth/*                      token lifecycle operations
//   - GET  /api/*                        admin and introspection surface
//   - GET  /metrics                      Prometheus exposition, when enabled
//
// The /v1 surface honors the configured inbound API key; everything
// else stays open for local tooling and probes.
//
// # Hot Reload
//
// When Options.ConfigPath is set the file is watched and a valid
// rewrite swaps the routing snapshot and adapter registry atomically.
// In-flight requests finish against the runtime they started with.
// Server-level settings still need a restart.
package server
