package serializer

import (
	"encoding/json"
	"errors"
)

var (
	ErrUnsupportedSerializer = errors.New("unsupported serializer")
)

// Serializer defines the pluggable wire serializer used to encode action
// results and decode action parameters. Implementations must be
// deterministic and side-effect-free.
type Serializer interface {
	// Serialize encodes a value to bytes
	Serialize(v interface{}) ([]byte, error)

	// Deserialize decodes bytes into a value
	Deserialize(data []byte, v interface{}) error

	// Name returns the serializer name
	Name() string
}

// Type identifies a serializer on the wire
type Type byte

const (
	TypeJSON     Type = 0x01
	TypeGob      Type = 0x02
	TypeProtobuf Type = 0x03
)

// Get returns a serializer by type
func Get(typ Type) (Serializer, error) {
	switch typ {
	case TypeJSON:
		return &JSONSerializer{}, nil
	case TypeGob:
		return &GobSerializer{}, nil
	case TypeProtobuf:
		return &ProtobufSerializer{}, nil
	default:
		return nil, ErrUnsupportedSerializer
	}
}

// JSONSerializer implements JSON encoding/decoding
type JSONSerializer struct{}

func (s *JSONSerializer) Serialize(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (s *JSONSerializer) Deserialize(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (s *JSONSerializer) Name() string {
	return "json"
}
