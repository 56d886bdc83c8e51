// Package provider defines the row store behind persistent omnikv stores.
//
// A provider persists opaque text rows keyed by string. It never interprets the
// value column: envelopes, expiry and merging live above it. Implementations
// must make Upsert all-or-nothing (one statement or one transaction) and must
// be safe for concurrent use.
package provider

import "context"

// DefaultTable is used when a provider is created without a table name.
const DefaultTable = "kv_global"

// Row is one stored entry.
type Row struct {
	Key   string
	Value string
}

// Provider is a minimal keyed row store.
type Provider interface {
	// Configure prepares storage (CREATE TABLE IF NOT EXISTS or equivalent).
	// It must be idempotent.
	Configure(ctx context.Context) error

	// Upsert inserts or replaces every row atomically.
	Upsert(ctx context.Context, rows []Row) error

	// Select returns the rows that exist for keys, in any order.
	// Missing keys and rows with a NULL value are omitted.
	Select(ctx context.Context, keys []string) ([]Row, error)

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys []string) error

	// DeleteAll removes every row of the table.
	DeleteAll(ctx context.Context) error

	// Keys lists every stored key.
	Keys(ctx context.Context) ([]string, error)

	// Table names the table, bucket or hash the provider writes to.
	Table() string

	// Close releases resources.
	Close(ctx context.Context) error
}
