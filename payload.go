package wbcache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/roomstate/wbcache/internal/wire"
)

// scalarText returns the literal text form of v when v is scalar-shaped.
// Structured values (maps, slices, structs) report false and go through the
// codec instead.
func scalarText(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case bool:
		return strconv.FormatBool(s), true
	case int:
		return strconv.FormatInt(int64(s), 10), true
	case int32:
		return strconv.FormatInt(int64(s), 10), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case uint:
		return strconv.FormatUint(uint64(s), 10), true
	case uint64:
		return strconv.FormatUint(s, 10), true
	case float32:
		return strconv.FormatFloat(float64(s), 'g', -1, 32), true
	case float64:
		return strconv.FormatFloat(s, 'g', -1, 64), true
	case json.Number:
		return s.String(), true
	}
	return "", false
}

// parseScalar mirrors the loose typing of the cache text form: numbers and
// booleans come back typed, anything else stays a string.
func parseScalar(s string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err == nil && !dec.More() {
		switch v.(type) {
		case json.Number, bool, nil:
			return v
		}
	}
	return s
}

func (m *manager) encodePayload(v any) ([]byte, error) {
	if s, ok := scalarText(v); ok {
		return wire.EncodeScalar([]byte(s)), nil
	}
	b, err := m.codec.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return wire.EncodeStructured(b), nil
}

func (m *manager) decodePayload(raw []byte) (any, error) {
	kind, payload, err := wire.Decode(raw)
	if err != nil {
		return nil, err
	}
	if kind == wire.KindScalar {
		return parseScalar(string(payload)), nil
	}
	return m.codec.Decode(payload)
}

// valuesEqual compares two dynamically shaped values by canonical JSON form,
// so json.Number(42), int 42 and a durable-store 42 all match.
func valuesEqual(a, b any) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
