// Package tokens caches user tokens per channel, user and connection.
//
// Two Store implementations are provided: MemoryStore for a single process,
// with a background loop that drops expired entries, and StorageStore, which
// keeps tokens in a storage.Storage so they survive restarts.
//
// Token values are wrapped in RedactedToken so they never end up in logs or
// error strings by accident.
package tokens
