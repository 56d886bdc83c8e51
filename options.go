package omnikv

import "time"

type getConfig struct {
	def      any
	cache    bool
	cacheTTL time.Duration
}

// GetOption tunes a read.
type GetOption func(*getConfig)

// WithDefault sets the value returned for unknown or expired keys.
func WithDefault(v any) GetOption { return func(c *getConfig) { c.def = v } }

// WithCache consults and populates the memo cache for this read.
func WithCache() GetOption { return func(c *getConfig) { c.cache = true } }

// WithCacheTTL overrides the memo TTL for entries populated by this read.
// It implies WithCache.
func WithCacheTTL(d time.Duration) GetOption {
	return func(c *getConfig) {
		c.cache = true
		c.cacheTTL = d
	}
}

type setConfig struct {
	lifetime    time.Duration
	hasLifetime bool
	merge       bool
}

// SetOption tunes a write.
type SetOption func(*setConfig)

// WithLifetime expires the entry d after the write. d must be positive.
func WithLifetime(d time.Duration) SetOption {
	return func(c *setConfig) { c.lifetime, c.hasLifetime = d, true }
}

// WithMerge deep-merges a record value into the current record.
func WithMerge() SetOption { return func(c *setConfig) { c.merge = true } }

type listConfig struct {
	limit     int
	hasLimit  bool
	randomize bool
	pattern   string
}

// ListOption tunes Keys, Entries and Values.
type ListOption func(*listConfig)

// Limit truncates listings to n items after any shuffle. Limit(0) returns
// nothing; negative values are ignored.
func Limit(n int) ListOption {
	return func(c *listConfig) {
		if n >= 0 {
			c.limit, c.hasLimit = n, true
		}
	}
}

// Randomize samples uniformly from the whole keyspace before truncation.
func Randomize() ListOption { return func(c *listConfig) { c.randomize = true } }

// Match keeps keys matching a glob pattern (gobwas/glob syntax, ':' separator).
func Match(pattern string) ListOption { return func(c *listConfig) { c.pattern = pattern } }

func apply[C any, O ~func(*C)](opts []O) C {
	var c C
	for _, o := range opts {
		o(&c)
	}
	return c
}
