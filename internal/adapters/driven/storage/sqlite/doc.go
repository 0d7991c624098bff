// Package sqlite provides the SQLite-based implementation of the Store
// driven port.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation
// that requires no CGO, enabling easy cross-compilation. A single
// database file holds the collections and chunks tables plus the
// chunks_fts full-text index, which is an external-content FTS5 table
// kept in sync with chunks.rowid by insert/delete/update triggers.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in
// the migrations/ directory as numbered .up.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.aifbin-recall/index.db
//
// # Thread Safety
//
// All operations are thread-safe. WAL mode allows concurrent readers
// alongside the single writer; multi-row mutations run inside one
// transaction.
package sqlite
