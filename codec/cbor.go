package codec

import "github.com/fxamacker/cbor/v2"

// CBOR is a Codec backed by fxamacker/cbor/v2 (RFC 8949). A deterministic
// binary alternative to Msgpack for callers standardizing on CBOR.
type CBOR[V any] struct{}

// Name identifies the encoding.
func (CBOR[V]) Name() string { return "cbor" }

// Encode marshals v to CBOR bytes.
func (CBOR[V]) Encode(v V) ([]byte, error) {
	return cbor.Marshal(v)
}

// Decode unmarshals CBOR bytes into a V.
func (CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	err := cbor.Unmarshal(b, &v)
	return v, err
}
