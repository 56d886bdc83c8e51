// Package genstore keeps per-key generations that guard memo population.
//
// A reader snapshots a key's generation before it reads the backing store and
// only memoizes what it read if the generation is unchanged afterwards. Writers
// bump the generation after persisting, so a read that raced a write never
// repopulates the value it overwrote.
package genstore

import "context"

// GenStore abstracts where generations live. Local keeps them in-process;
// Redis shares them between processes that share a remote memo.
type GenStore interface {
	// Snapshot returns the current generation. Unknown keys read as a baseline
	// (0 unless the store prunes).
	Snapshot(ctx context.Context, key string) (uint64, error)
	// SnapshotMany returns a generation for every key.
	SnapshotMany(ctx context.Context, keys []string) (map[string]uint64, error)
	// Bump increments and returns the new generation.
	Bump(ctx context.Context, key string) (uint64, error)
	// BumpMany increments every key; a batch write invalidates all members at once.
	BumpMany(ctx context.Context, keys []string) error
	Close(ctx context.Context) error
}
