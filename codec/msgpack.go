package codec

import "github.com/vmihailenco/msgpack/v5"

// Msgpack is a Codec backed by vmihailenco/msgpack/v5. It is the default for
// persisted store records: compact and fast. Struct tags differ from JSON;
// use `msgpack:"fieldName"` when explicit field control is needed.
type Msgpack[V any] struct{}

// Name identifies the encoding.
func (Msgpack[V]) Name() string { return "msgpack" }

// Encode marshals v to msgpack bytes.
func (Msgpack[V]) Encode(v V) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Decode unmarshals msgpack bytes into a V.
func (Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	err := msgpack.Unmarshal(b, &v)
	return v, err
}
