// Package sqlite provides the SQLite-backed archive of retrieved workspace data.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. One Store serves two port interfaces over a single connection:
//
//   - ArchiveStore: conversations, users, file metadata and message history
//   - ExportRunStore: the record of each export run
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Messages are stored as a kind plus a JSON payload per variant.
//
// # Data Location
//
// By default, the database is stored at ~/.slack-archive/data/archive.db
//
// # Thread Safety
//
// All operations are thread-safe. The store relies on SQLite locking in WAL mode.
package sqlite
