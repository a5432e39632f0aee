//go:build sqlite_cgo
// +build sqlite_cgo

package prefs

// This file is compiled when building with CGO and the sqlite_cgo tag,
// selecting the C SQLite driver.
//
// Build command:
//   CGO_ENABLED=1 go build -tags sqlite_cgo ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
