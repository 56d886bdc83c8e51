// Package codec holds the value codec: the entry envelope, the type registry that
// lets byte buffers, ordered maps, sets and timestamps survive JSON storage, the
// text armor used by SQL backends, and the byte codecs used for memo snapshots.
package codec

// Codec encodes/decodes values V to []byte. Remote memo caches use a Codec[any]
// over registry-projected snapshots.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
