package wire

import (
	"bytes"
	"errors"
)

const (
	version byte = 1

	// KindScalar payloads hold the literal text form of a scalar value.
	KindScalar byte = 1
	// KindStructured payloads hold a codec-encoded map or array.
	KindStructured byte = 2
)

var (
	ErrCorrupt = errors.New("wbcache: corrupt cache payload")
	magic4     = [...]byte{'W', 'B', 'C', 'H'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Envelope: magic(4) | ver(1) | kind(1) | payload(rest)
func Encode(kind byte, payload []byte) []byte {
	out := make([]byte, 0, 4+1+1+len(payload))
	out = append(out, magic4[:]...)
	out = append(out, version, kind)
	out = append(out, payload...)
	return out
}

// EncodeScalar wraps the literal text form of a scalar value.
func EncodeScalar(text []byte) []byte {
	return Encode(KindScalar, text)
}

// EncodeStructured wraps a codec-encoded structured value.
func EncodeStructured(payload []byte) []byte {
	return Encode(KindStructured, payload)
}

func Decode(b []byte) (kind byte, payload []byte, err error) {
	const hdr = 4 + 1 + 1
	if len(b) < hdr || !hasMagic(b) || b[4] != version {
		return 0, nil, ErrCorrupt
	}
	kind = b[5]
	if kind != KindScalar && kind != KindStructured {
		return 0, nil, ErrCorrupt
	}
	return kind, b[hdr:], nil
}
