package codec

// Codec encodes/decodes structured payloads (maps, arrays, structs) to []byte
// for cache storage. Payloads here are dynamically shaped, so the interface
// works on any rather than a concrete value type.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(b []byte) (any, error)
}
