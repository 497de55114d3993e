// Package session persists session records: one opaque value per namespace
// key in a key-value backend, plus the codecs that turn a principal into that
// value and back.
//
// # Backends
//
// [Backend] is a single blocking interface. [MemoryBackend] stands in for
// browser local storage; [RedisBackend], [SQLiteBackend] and
// [PostgresBackend] give durability across processes. Every backend failure
// wraps [ErrBackendUnavailable]; an absent key is [ErrRecordNotFound].
//
// # What this package must NOT do
//
//   - Import authstore or interpret principals beyond JSON encoding.
//   - Retry failed backend calls.
package session
