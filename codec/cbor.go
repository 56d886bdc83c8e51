package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// CBOR is a compact snapshot codec. Build it with NewCBOR; the zero value has
// no modes and fails every call.
//
// Maps decode as map[string]any, the shape Registry.Project produces, and
// integers come back as int64 or uint64.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec[any] = CBOR[any]{}

var stringMap = reflect.TypeOf(map[string]any(nil))

// NewCBOR builds the codec. With sorted set, map keys are written in core
// deterministic order so equal snapshots encode to equal bytes.
func NewCBOR[V any](sorted bool) (CBOR[V], error) {
	opts := cbor.PreferredUnsortedEncOptions()
	if sorted {
		opts = cbor.CoreDetEncOptions()
	}
	opts.Time = cbor.TimeRFC3339Nano

	em, err := opts.EncMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	dm, err := cbor.DecOptions{DefaultMapType: stringMap}.DecMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	return CBOR[V]{enc: em, dec: dm}, nil
}

func (c CBOR[V]) Encode(v V) ([]byte, error) { return c.enc.Marshal(v) }

func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	err := c.dec.Unmarshal(b, &v)
	return v, err
}
