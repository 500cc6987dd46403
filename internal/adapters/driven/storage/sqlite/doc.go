// Package sqlite provides the SQLite-backed embedding store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files;
// applied versions are recorded in schema_migrations.
//
// Vectors are stored as little-endian IEEE-754 float64 blobs so they
// round-trip without loss. Timestamps are Unix milliseconds.
//
// # Data Location
//
// By default, the database is stored at ~/.notewise/data/embeddings.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode; multi-statement writes run in a transaction.
package sqlite
