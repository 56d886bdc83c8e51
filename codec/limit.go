package codec

import (
	"errors"
	"fmt"
)

var ErrTooLarge = errors.New("codec: snapshot too large")

// Limited refuses to decode snapshots larger than Max bytes and forwards
// everything else to Inner. Max <= 0 disables the check. Use it when a remote
// memo shares its byte store with other writers.
type Limited[V any] struct {
	Inner Codec[V]
	Max   int
}

func (c Limited[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }

func (c Limited[V]) Decode(b []byte) (V, error) {
	if c.Max > 0 && len(b) > c.Max {
		var zero V
		return zero, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(b), c.Max)
	}
	return c.Inner.Decode(b)
}
