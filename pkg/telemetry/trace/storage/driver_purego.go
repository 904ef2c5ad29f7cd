//go:build !cgo

package storage

import (
	// The transpiled driver keeps CGO_ENABLED=0 builds working, so
	// cross-compiled release binaries still get sqlite tracing.
	_ "modernc.org/sqlite"
)

const sqliteDriver = "sqlite"
