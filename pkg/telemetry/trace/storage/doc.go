// Package storage provides trace record backends.
//
// Two backends implement trace.Storage:
//
//   - MemoryStorage: a bounded in-memory buffer, the default. Cheap,
//     no persistence, oldest records evicted at the limit.
//   - SQLiteStorage: a database file under the gateway directory.
//     Records survive restarts; the retention pruner bounds growth.
//
// The SQLite driver is chosen at build time: the cgo driver when cgo
// is available, a pure Go driver otherwise, so CGO_ENABLED=0 builds
// keep working. Open selects and constructs the backend from the
// telemetry.trace configuration section.
package storage
