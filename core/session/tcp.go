package session

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/jerrygaohk/networksocket/core/buffer"
)

var nextSessionID atomic.Uint64

// TCPSession is the plaintext transport session over an accepted net.Conn.
type TCPSession struct {
	id   uint64
	conn net.Conn

	// buf is owned by the receive loop: appended and consumed only on that
	// goroutine, released when the loop exits. No other goroutine may
	// touch it.
	buf      *buffer.ReceiveBuffer
	receiver Receiver

	sendMu sync.Mutex

	protocol  atomic.Uint32
	connected atomic.Bool
	closeOnce sync.Once

	onDisconnect []func(Session)
	readBufSize  int
	secure       bool
}

// Option configures a session.
type Option func(*TCPSession)

// WithReadBufferSize sets the size of the scratch buffer used per read cycle.
func WithReadBufferSize(n int) Option {
	return func(s *TCPSession) {
		if n > 0 {
			s.readBufSize = n
		}
	}
}

// NewTCP binds a session to an accepted connection. The receiver is offered
// the receive buffer after every successful read.
func NewTCP(conn net.Conn, receiver Receiver, opts ...Option) *TCPSession {
	s := &TCPSession{
		id:          nextSessionID.Add(1),
		conn:        conn,
		buf:         buffer.New(4096),
		receiver:    receiver,
		readBufSize: 8192,
	}
	s.connected.Store(true)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TCPSession) ID() uint64           { return s.id }
func (s *TCPSession) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }
func (s *TCPSession) IsSecure() bool       { return s.secure }
func (s *TCPSession) IsConnected() bool    { return s.connected.Load() }

func (s *TCPSession) Buffer() *buffer.ReceiveBuffer { return s.buf }

func (s *TCPSession) Protocol() Protocol {
	return Protocol(s.protocol.Load())
}

func (s *TCPSession) SetProtocol(p Protocol) bool {
	return s.protocol.CompareAndSwap(uint32(ProtocolNone), uint32(p))
}

func (s *TCPSession) OnDisconnect(fn func(Session)) {
	s.onDisconnect = append(s.onDisconnect, fn)
}

// LoopReceive reads from the connection until EOF or a transport error.
// Each cycle appends the bytes read to the receive buffer and offers the
// buffer to the receiver. The disconnect path runs exactly once, whether
// the loop ends here or the session is closed concurrently.
func (s *TCPSession) LoopReceive() {
	defer s.buf.Reset()

	scratch := make([]byte, s.readBufSize)
	for {
		n, err := s.conn.Read(scratch)
		if n > 0 {
			s.buf.Write(scratch[:n])

			if s.receiver != nil {
				s.receiver.OnReceive(s)
			}
		}
		if err != nil {
			s.Close()
			return
		}
		if !s.connected.Load() {
			return
		}
	}
}

// Send writes p to the peer. Writes are serialized so interleaved responses
// from concurrent dispatches never corrupt each other on the wire.
func (s *TCPSession) Send(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, ErrEmptyBuffer
	}
	if !s.connected.Load() {
		return 0, ErrNotConnected
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	n, err := s.conn.Write(p)
	if err != nil {
		s.Close()
	}
	return n, err
}

// Close releases the connection and fires the disconnect callbacks. Safe
// from any goroutine: the receive buffer is left to its owning loop, which
// releases it on exit. Calling Close again is a no-op.
func (s *TCPSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.connected.Store(false)
		err = s.conn.Close()

		for _, fn := range s.onDisconnect {
			fn(s)
		}
	})
	return err
}
