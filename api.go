package omnikv

import (
	"context"
	"time"

	"github.com/unkn0wn-root/omnikv/codec"
	gen "github.com/unkn0wn-root/omnikv/genstore"
	"github.com/unkn0wn-root/omnikv/memo"
	pr "github.com/unkn0wn-root/omnikv/provider"
)

// Entry pairs a key with its value in multi-key results.
type Entry struct {
	Key   string
	Value any
}

// Presence pairs a key with whether it holds a live value.
type Presence struct {
	Key string
	Has bool
}

// Store is the uniform key-value contract shared by every backend.
//
// Values are any of: nil, bool, float64 (and other numbers, which decode as
// float64 from persistent backends), string, []any, map[string]any, []byte,
// *codec.OrderedMap, *codec.Set and time.Time, nested freely. Single-key
// methods return bare values; the *Many methods return one wrapper per
// requested key, in request order.
type Store interface {
	// Configure prepares the backend. Persistent backends refuse every other
	// call until it succeeds. Calling it again is a no-op.
	Configure(ctx context.Context) error
	Close(ctx context.Context) error

	// Get returns the value for key, or the WithDefault value (nil if unset)
	// when key is unknown or expired.
	Get(ctx context.Context, key string, opts ...GetOption) (any, error)
	GetMany(ctx context.Context, keys []string, opts ...GetOption) ([]Entry, error)

	// Set writes value under key. With WithMerge a record value is deep-merged
	// into the current record.
	Set(ctx context.Context, key string, value any, opts ...SetOption) error
	// SetMany writes value under every key in one atomic batch.
	SetMany(ctx context.Context, keys []string, value any, opts ...SetOption) error

	Has(ctx context.Context, key string) (bool, error)
	HasMany(ctx context.Context, keys []string) ([]Presence, error)

	// Delete is idempotent; unknown keys are not an error.
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys []string) error

	// Clear removes every entry and drops the memo cache.
	Clear(ctx context.Context) error

	// Keys lists stored keys. Expired entries that were never read again may
	// still be listed.
	Keys(ctx context.Context, opts ...ListOption) ([]string, error)
	// Entries and Values read the listed keys; expired entries are dropped.
	Entries(ctx context.Context, opts ...ListOption) ([]Entry, error)
	Values(ctx context.Context, opts ...ListOption) ([]any, error)
}

// Options tune a store. Everything is optional: a zero Options is an
// in-memory store.
type Options struct {
	// Provider persists rows. nil => in-process memory backend.
	Provider pr.Provider
	// Backend labels the provider in errors and logs. "" => "memory" or "custom".
	Backend Backend

	Registry *codec.Registry // nil => codec.Default
	// Encoding selects store/parse encodings for row backends. Use is always
	// forced on there and off for the memory backend.
	Encoding codec.Encoding

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used

	Cache    bool          // memoize every read, not just WithCache ones
	CacheTTL time.Duration // memo TTL; 0 => 30s
	// Memo holds memoized reads. nil => memo.Local. Namespace remote memos per store.
	Memo memo.Cache
	// MemoNamespace isolates generations of stores sharing a GenStore. "" => table name.
	MemoNamespace string
	// GenStore guards memo population. nil => in-process generations.
	GenStore gen.GenStore

	Clock func() time.Time // nil => time.Now
}

// New builds a store from opts. Persistent stores must be configured before use.
func New(opts Options) (Store, error) {
	return newStore(opts)
}

// NewMemory returns a ready in-memory store.
func NewMemory() Store {
	s, _ := newStore(Options{})
	return s
}
