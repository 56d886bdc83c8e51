// Package memo holds the read-through cache that sits in front of a store.
//
// Memo entries are advisory: a value may be served until its memo TTL passes
// even if the underlying entry expired earlier. Each Item carries the key
// generation observed when it was populated so callers can reject entries
// written before a newer generation.
package memo

import (
	"context"
	"time"
)

// DefaultTTL is used when Set is called with a non-positive ttl.
const DefaultTTL = 30 * time.Second

// Item is one memoized value.
type Item struct {
	Value any
	Gen   uint64
}

// Cache is a key -> Item cache with per-entry TTL.
type Cache interface {
	// Get returns (item, true, nil) on a live hit. Expired entries are evicted
	// lazily and reported as misses.
	Get(ctx context.Context, key string) (Item, bool, error)
	Set(ctx context.Context, key string, it Item, ttl time.Duration) error
	Has(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// Clear drops every entry written through this cache.
	Clear(ctx context.Context) error
	Close(ctx context.Context) error
}

// ByteStore is a byte store with TTLs backing Remote.
// Must be safe for concurrent use and byte-for-byte transparent: Get must return
// exactly the []byte previously passed to Set for the same key.
type ByteStore interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL. May ignore cost if unsupported.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	Close(ctx context.Context) error
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
