// Package omnikv is a key-value store with one contract over many backends:
// an in-process map, SQL tables (SQLite, MySQL, PostgreSQL), embedded stores
// (bbolt, Badger) and Redis hashes.
//
// On top of the backend it adds per-entry lifetimes, type-preserving
// serialization of byte buffers, ordered maps, sets and timestamps, an
// optional read-through memo cache with its own TTL, record merging on write
// and randomized, limited listings.
//
// Components:
//   - Store: the uniform API (Get/Set/Has/Delete, *Many variants, Clear, Keys,
//     Entries, Values).
//   - provider.Provider: keyed text rows; one per backend package.
//   - codec: envelopes, the type registry and text armoring.
//   - memo + genstore: memoized reads guarded by per-key generations.
//
// Stored values (row backends):
//
//	{"ctx":{"save":"<base64 of registry-projected JSON>"},"createdAt":"...","lifetime":"...|null",
//	 "encoder":{"use":true,"store":"base64","parse":"utf-8"}}
//
// Expiry is lazy: an expired entry is deleted when it is next read. Nothing
// sweeps in the background, so Keys may still list expired entries.
//
// Usage:
//
//	import _ "github.com/unkn0wn-root/omnikv/provider/sqlite"
//
//	s, err := omnikv.Open(ctx, omnikv.Config{Backend: omnikv.BackendSQLite, DSN: "file:kv.db"})
//	_ = s.Set(ctx, "user:1", map[string]any{"name": "ada"}, omnikv.WithLifetime(time.Hour))
//	v, _ := s.Get(ctx, "user:1", omnikv.WithCache())
package omnikv
