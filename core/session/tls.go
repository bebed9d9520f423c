package session

import (
	"context"
	"crypto/tls"
	"net"
)

// TLSSession is a transport session whose reads and writes run over an
// encrypted stream. It reuses the plaintext session's receive loop and
// locking discipline; only the handshake phase is added. A session whose
// handshake fails is closed without the receive loop ever starting.
type TLSSession struct {
	*TCPSession
	tlsConn *tls.Conn
}

// NewTLSServer wraps an accepted connection in the server side of a TLS
// session. Handshake must complete before LoopReceive is started.
func NewTLSServer(conn net.Conn, cfg *tls.Config, receiver Receiver, opts ...Option) *TLSSession {
	tc := tls.Server(conn, cfg)
	base := NewTCP(tc, receiver, opts...)
	base.secure = true
	return &TLSSession{TCPSession: base, tlsConn: tc}
}

// NewTLSClient wraps an outbound connection in the client side of a TLS
// session.
func NewTLSClient(conn net.Conn, cfg *tls.Config, receiver Receiver, opts ...Option) *TLSSession {
	tc := tls.Client(conn, cfg)
	base := NewTCP(tc, receiver, opts...)
	base.secure = true
	return &TLSSession{TCPSession: base, tlsConn: tc}
}

// Handshake runs the TLS negotiation. On failure the session is closed and
// the handshake error returned; no bytes ever reach the receive buffer.
func (s *TLSSession) Handshake(ctx context.Context) error {
	if err := s.tlsConn.HandshakeContext(ctx); err != nil {
		s.Close()
		return err
	}
	return nil
}

// ConnectionState reports the negotiated TLS state.
func (s *TLSSession) ConnectionState() tls.ConnectionState {
	return s.tlsConn.ConnectionState()
}
