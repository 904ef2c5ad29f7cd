// Package telemetry provides observability for the gateway.
//
// # Components
//
//   - logging: structured slog logging with credential redaction and an
//     in-memory ring buffer backing the admin log endpoint
//   - metrics: Prometheus metrics for requests, per-provider attempts,
//     failovers, OAuth refreshes, and active streams
//   - trace: per-attempt dispatch trace records with memory and SQLite
//     backends plus scheduled retention pruning
//
// Each component is wired by the server package and configured through
// the telemetry section of the configuration file.
package telemetry
