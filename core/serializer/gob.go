package serializer

import (
	"bytes"
	"encoding/gob"
)

// GobSerializer implements binary encoding/decoding using Go's gob format.
// Both peers must be Go processes; use JSON or Protobuf for cross-language
// clients.
type GobSerializer struct{}

func (s *GobSerializer) Serialize(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *GobSerializer) Deserialize(data []byte, v interface{}) error {
	buf := bytes.NewBuffer(data)
	dec := gob.NewDecoder(buf)
	return dec.Decode(v)
}

func (s *GobSerializer) Name() string {
	return "gob"
}
