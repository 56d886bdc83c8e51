package omnikv

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The store calls them on hot paths.
type Hooks interface {
	// A read was answered from the memo cache.
	CacheHit(key string)
	// A cache-enabled read had to go to the backend.
	CacheMiss(key string)

	// A read did not memoize what it fetched.
	// reason ∈ {"gen_mismatch", "cleared", "snapshot_error", "memo_error"}
	CachePopulateSkipped(key, reason string)

	// A read found an expired entry and answered with the default.
	Expired(key string)
	// The best-effort delete of an expired entry failed.
	LazyDeleteFailed(key string, err error)

	// WithMerge was requested but the pair was not record x record;
	// the new value replaced the current one.
	// reason ∈ {"next_not_record", "current_not_record"}
	MergeSkipped(key, reason string)

	// GenStore errors. op ∈ {"snapshot", "bump"}; count is the number of keys.
	GenError(op string, count int, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) CacheHit(string)                     {}
func (NopHooks) CacheMiss(string)                    {}
func (NopHooks) CachePopulateSkipped(string, string) {}
func (NopHooks) Expired(string)                      {}
func (NopHooks) LazyDeleteFailed(string, error)      {}
func (NopHooks) MergeSkipped(string, string)         {}
func (NopHooks) GenError(string, int, error)         {}
