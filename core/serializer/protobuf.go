package serializer

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// ProtobufSerializer implements Protocol Buffers encoding/decoding
type ProtobufSerializer struct{}

func (s *ProtobufSerializer) Serialize(v interface{}) ([]byte, error) {
	msg, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("value must implement proto.Message interface, got %T", v)
	}
	return proto.Marshal(msg)
}

func (s *ProtobufSerializer) Deserialize(data []byte, v interface{}) error {
	msg, ok := v.(proto.Message)
	if !ok {
		return fmt.Errorf("value must implement proto.Message interface, got %T", v)
	}
	return proto.Unmarshal(data, msg)
}

func (s *ProtobufSerializer) Name() string {
	return "protobuf"
}
