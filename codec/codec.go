// Package codec defines the value encoding used for persisted session
// records, capability-cache snapshots and session exports.
//
// A Codec is generic over the value type so callers keep full type safety:
//
//	var c codec.Msgpack[sessionRecord]
//	b, err := c.Encode(rec)
//
// All provided codecs are zero-value ready and safe for concurrent use.
package codec

// Codec encodes and decodes values of type V.
type Codec[V any] interface {
	// Name identifies the encoding (used for logging and record metadata).
	Name() string
	Encode(v V) ([]byte, error)
	Decode(b []byte) (V, error)
}
