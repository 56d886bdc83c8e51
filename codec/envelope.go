package codec

import "time"

// Default encoding descriptor values.
const (
	StoreBase64 = "base64"
	ParseUTF8   = "utf-8"
)

// Encoding describes how an envelope's ctx is armored before it is written.
// When Use is false the value is embedded as plain (registry-projected) JSON.
type Encoding struct {
	Use   bool   `json:"use"`
	Store string `json:"store"` // byte -> text encoding, e.g. "base64"
	Parse string `json:"parse"` // text charset, e.g. "utf-8"
}

// Armored returns the descriptor used by backends that only store text.
func Armored() Encoding {
	return Encoding{Use: true, Store: StoreBase64, Parse: ParseUTF8}
}

// Plain returns the descriptor used by backends that hold values directly.
func Plain() Encoding {
	return Encoding{Use: false, Store: "utf-8", Parse: ParseUTF8}
}

func (e Encoding) withDefaults() Encoding {
	e.Store = coalesce(e.Store, StoreBase64)
	e.Parse = coalesce(e.Parse, ParseUTF8)
	return e
}

// Envelope wraps a user value with its bookkeeping.
type Envelope struct {
	Ctx       any        `json:"ctx"`
	CreatedAt time.Time  `json:"createdAt"`
	Lifetime  *time.Time `json:"lifetime"` // absolute expiry (UTC); nil => never expires
	Encoder   Encoding   `json:"encoder"`
}

// NewEnvelope stamps v with the current time. A positive lifetime sets an absolute
// expiry of now+lifetime.
func NewEnvelope(v any, now time.Time, lifetime time.Duration, enc Encoding) *Envelope {
	now = now.UTC()
	env := &Envelope{
		Ctx:       v,
		CreatedAt: now,
		Encoder:   enc.withDefaults(),
	}
	if lifetime > 0 {
		exp := now.Add(lifetime)
		env.Lifetime = &exp
	}
	return env
}

// Expired reports whether the envelope's lifetime has passed at now.
func (e *Envelope) Expired(now time.Time) bool {
	if e.Lifetime == nil {
		return false
	}
	return now.UTC().After(*e.Lifetime)
}

// IsExpired treats a missing envelope as expired.
func IsExpired(e *Envelope, now time.Time) bool {
	if e == nil {
		return true
	}
	return e.Expired(now)
}

func coalesce(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
