package codec

import "encoding/json"

// JSON is a Codec backed by encoding/json. It is the interchange format for
// session exports where human readability matters more than size.
type JSON[V any] struct{}

// Name identifies the encoding.
func (JSON[V]) Name() string { return "json" }

// Encode marshals v to JSON bytes.
func (JSON[V]) Encode(v V) ([]byte, error) {
	return json.Marshal(v)
}

// Decode unmarshals JSON bytes into a V.
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
