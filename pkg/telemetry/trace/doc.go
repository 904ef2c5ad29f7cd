// Package trace records the dispatch history of gateway requests.
//
// # Overview
//
// Every request produces one Record: the model resolution that routed
// it and an Attempt entry for each provider tried, in order. Records
// answer the operational questions a failover gateway raises: which
// provider served a request, which ones failed first and why, and how
// long each try took.
//
// # Recording
//
// The Recorder sits between dispatch and storage. Dispatch hands over
// a finished Record and continues; a worker goroutine persists it.
// When the buffer is full the record is dropped and counted rather
// than ever blocking a request.
//
// # Storage
//
// The storage subpackage provides a bounded in-memory backend (the
// default) and a SQLite backend for records that survive restarts.
// The retention subpackage prunes old SQLite records on a cron
// schedule.
//
// # Querying
//
// The traces endpoint reads records through Storage.Query with
// time-range, provider, model and outcome filters, newest first.
package trace
