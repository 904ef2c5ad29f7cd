//go:build cgo

package storage

import (
	// The cgo driver is faster and battle-tested; used when cgo is
	// available.
	_ "github.com/mattn/go-sqlite3"
)

const sqliteDriver = "sqlite3"
