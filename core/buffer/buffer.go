package buffer

import "errors"

var (
	// ErrClearRange is returned when Clear is asked to discard more bytes than are buffered.
	ErrClearRange = errors.New("clear exceeds buffered length")
)

// ReceiveBuffer accumulates bytes received on one session until a protocol
// handler commits to a complete frame.
//
// It is NOT safe for concurrent use: ownership belongs to the session's
// receive path, which serializes appends and consumption under the session
// lock. Handlers may peek freely; bytes are physically removed only through
// Clear, after a frame has been fully parsed. Partial frames always survive
// to the next receive event.
type ReceiveBuffer struct {
	data []byte
}

// New creates a receive buffer with the given initial capacity.
func New(capacity int) *ReceiveBuffer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &ReceiveBuffer{data: make([]byte, 0, capacity)}
}

// Write appends received bytes to the buffer.
func (b *ReceiveBuffer) Write(p []byte) {
	b.data = append(b.data, p...)
}

// Len returns the number of buffered bytes.
func (b *ReceiveBuffer) Len() int {
	return len(b.data)
}

// Bytes returns a view of all buffered bytes without consuming them.
// The view is invalidated by the next Write or Clear.
func (b *ReceiveBuffer) Bytes() []byte {
	return b.data
}

// Peek returns a view of the first n buffered bytes, or nil if fewer
// than n bytes are available. Nothing is consumed.
func (b *ReceiveBuffer) Peek(n int) []byte {
	if n < 0 || n > len(b.data) {
		return nil
	}
	return b.data[:n]
}

// Clear discards the first n bytes, committing a fully parsed frame.
func (b *ReceiveBuffer) Clear(n int) error {
	if n < 0 || n > len(b.data) {
		return ErrClearRange
	}
	remain := copy(b.data, b.data[n:])
	b.data = b.data[:remain]
	return nil
}

// Reset discards all buffered bytes but keeps the allocation.
func (b *ReceiveBuffer) Reset() {
	b.data = b.data[:0]
}
