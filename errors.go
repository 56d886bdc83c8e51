package omnikv

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("omnikv: validation error")
	// ErrNotConfigured is returned by persistent stores used before Configure.
	ErrNotConfigured = errors.New("omnikv: store not configured")
	// ErrClosed is returned by stores used after Close.
	ErrClosed = errors.New("omnikv: store closed")
)

// ValidationError reports a malformed key or option. It is never retried.
type ValidationError struct {
	Key    string // offending value, if any
	Index  int    // position in a multi-key call; -1 for single keys
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("omnikv: validation error: key[%d] %q: %s", e.Index, e.Key, e.Reason)
	}
	if e.Key != "" {
		return fmt.Sprintf("omnikv: validation error: key %q: %s", e.Key, e.Reason)
	}
	return "omnikv: validation error: " + e.Reason
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConfigError wraps failures while opening or configuring a backend.
type ConfigError struct {
	Backend Backend
	Table   string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("omnikv: configure %s (table %q): %v", e.Backend, e.Table, e.Err)
	}
	return fmt.Sprintf("omnikv: configure %s: %v", e.Backend, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
