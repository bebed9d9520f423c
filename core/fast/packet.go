package fast

import "encoding/binary"

const (
	// LengthPrefixSize is the fixed frame prefix: a 4-byte big-endian body
	// length.
	LengthPrefixSize = 4

	// DefaultMaxFrameSize bounds the declared body length. Longer
	// declarations mean the bytes are not Fast frames.
	DefaultMaxFrameSize = 4 << 20
)

// Message is the Fast protocol body. Its encoding is serializer-defined;
// the frame layer sees only opaque bytes.
//
// Requests carry API, ID and one encoded value per action parameter.
// Responses echo API and ID; State=false marks a remote-exception
// notification carrying Error instead of Data.
type Message struct {
	API    string   `json:"api"`
	ID     int64    `json:"id"`
	State  bool     `json:"state"`
	Params [][]byte `json:"params,omitempty"`
	Data   []byte   `json:"data,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// EncodeFrame prefixes an encoded body with its length.
func EncodeFrame(body []byte) []byte {
	frame := make([]byte, LengthPrefixSize+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[LengthPrefixSize:], body)
	return frame
}

// DeclaredLength reads the body length from a frame prefix.
func DeclaredLength(head []byte) int {
	return int(binary.BigEndian.Uint32(head))
}
