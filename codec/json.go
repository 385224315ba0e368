package codec

import "encoding/json"

// JSON is the default codec. Absent/omitted fields round-trip
// consistently (encoding/json drops them on encode and zeroes them on
// decode), which keeps keys comparable across writers.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
