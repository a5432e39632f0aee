//go:build purego || !sqlite_cgo
// +build purego !sqlite_cgo

package prefs

// This file is compiled when building without CGO, selecting the pure Go
// SQLite driver. No C compiler required; cross-compiles everywhere.
//
// Build command:
//   CGO_ENABLED=0 go build ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
