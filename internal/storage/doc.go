// Package storage provides the durable key/value backends that bot state and
// cached tokens are persisted to.
//
// Three implementations are available:
//
//   - MemoryStorage: process-local map, for tests and the single-process console
//   - FileStorage: one YAML document per key under a directory
//   - sqlite.Storage: a single SQLite file (see the sqlite subpackage)
//
// Values are opaque byte slices; callers serialize their own documents. Writes
// to a single key are atomic with last-writer-wins semantics.
package storage
