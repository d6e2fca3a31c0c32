package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// Proto serializes proto.Message payloads.
// Decode returns the concrete message built by the constructor.
type Proto[T proto.Message] struct {
	new func() T // constructor for a concrete message (e.g., func() *structpb.Value { return &structpb.Value{} })
}

func NewProto[T proto.Message](ctor func() T) Proto[T] {
	return Proto[T]{new: ctor}
}

func (c Proto[T]) Encode(v any) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("codec: %T is not a proto.Message", v)
	}
	return proto.Marshal(m)
}

func (c Proto[T]) Decode(b []byte) (any, error) {
	m := c.new()
	if err := proto.Unmarshal(b, m); err != nil {
		return nil, err
	}
	return m, nil
}
