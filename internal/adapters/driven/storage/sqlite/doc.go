// Package sqlite provides a persistent, local implementation of
// driven.EmbeddingStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Vectors are stored as little-endian float32 blobs next to
// the segment text and its metadata (a JSON object in insertion order).
// Search loads every vector and ranks by cosine similarity, which is fine for
// the few hundred thousand segments a local sample holds.
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory (NNN_name.up.sql).
//
// # Data Location
//
// By default, the database is stored at ~/.ragsample/embeddings.db
package sqlite
