// Package retention bounds trace storage growth.
//
// A Pruner deletes records older than the configured retention period.
// Its Scheduler runs the pruner on a cron expression, daily at 3 AM by
// default, and stops with the server. The memory backend self-caps, so
// retention mainly matters for the sqlite backend.
package retention
