// Package prefs persists per-chat settings in SQLite: response formatting
// toggles, automatic-search configuration, and the counters that drive
// engine and failure suggestions.
//
// Two SQLite drivers are supported through build tags. The default build
// uses the pure Go driver (modernc.org/sqlite) and needs no C toolchain;
// building with -tags sqlite_cgo selects github.com/mattn/go-sqlite3.
package prefs
