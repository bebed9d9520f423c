package session

import (
	"errors"
	"net"

	"github.com/jerrygaohk/networksocket/core/buffer"
)

var (
	// ErrNotConnected is returned by Send after the session has closed.
	ErrNotConnected = errors.New("session is not connected")

	// ErrEmptyBuffer signals a programming error: Send called with no data.
	ErrEmptyBuffer = errors.New("send buffer is nil or empty")
)

// Protocol is the application protocol a session has been pinned to.
type Protocol uint8

const (
	ProtocolNone Protocol = iota
	ProtocolFast
	ProtocolHTTP
)

func (p Protocol) String() string {
	switch p {
	case ProtocolFast:
		return "fast"
	case ProtocolHTTP:
		return "http"
	default:
		return "none"
	}
}

// Receiver consumes a session's buffered bytes each time the receive loop
// appends data. The middleware chain implements this.
type Receiver interface {
	OnReceive(s Session)
}

// Session is one accepted connection. The receive buffer is owned by the
// session's receive loop: handlers inspect and consume it only from within
// Receiver.OnReceive. Send and Close are safe from any goroutine.
type Session interface {
	// ID returns the server-unique session identifier.
	ID() uint64

	// RemoteAddr returns the peer address.
	RemoteAddr() net.Addr

	// Buffer returns the session's receive buffer.
	Buffer() *buffer.ReceiveBuffer

	// Protocol returns the pinned protocol, or ProtocolNone.
	Protocol() Protocol

	// SetProtocol pins the protocol. The tag is write-once: the first call
	// wins and returns true, later calls are no-ops returning false.
	SetProtocol(p Protocol) bool

	// Send writes p to the peer, blocking until the write completes.
	// It fails with ErrNotConnected on a closed session and with
	// ErrEmptyBuffer when p is nil or empty.
	Send(p []byte) (int, error)

	// Close tears the session down. Safe to call more than once.
	Close() error

	// IsConnected reports liveness.
	IsConnected() bool

	// IsSecure reports whether traffic is TLS-protected.
	IsSecure() bool

	// OnDisconnect registers a callback fired exactly once when the session
	// terminates, from whichever path terminated it. Must be called before
	// LoopReceive.
	OnDisconnect(fn func(Session))

	// LoopReceive runs the receive cycle until the peer closes or a
	// transport error occurs. It blocks; callers run it on its own goroutine.
	LoopReceive()
}
