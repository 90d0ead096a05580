//go:build fts5 || sqlite_fts5

// Package fts enables FTS5 support for SQLite full-text search.
// Build with -tags="fts5" or -tags="sqlite_fts5" so mattn/go-sqlite3
// compiles its FTS5 extension in.
package fts

import (
	_ "github.com/mattn/go-sqlite3"
)
