// Package codec (de)serializes cached values for the remote backend.
//
// The redis backend stores whatever bytes a Codec produces and parses
// them back on read; a payload that fails to decode is treated as a miss,
// never as an error surfaced to the caller.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
