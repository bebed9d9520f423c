// Package server owns the accept loop: it turns accepted connections into
// transport sessions, hands each session's bytes to a receiver, and tears
// everything down on shutdown.
package server

import (
	"context"
	"crypto/tls"
	"log"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/netutil"

	"github.com/jerrygaohk/networksocket/core/metrics"
	"github.com/jerrygaohk/networksocket/core/session"
)

// ErrClosed is returned by Serve after Shutdown or Close.
var ErrClosed = errors.New("server closed")

// Server accepts connections on one address and runs a receive loop per
// session. The protocol logic lives entirely in the receiver; the server
// only concerns itself with connection lifecycle.
type Server struct {
	addr             string
	receiver         session.Receiver
	tlsConfig        *tls.Config
	maxConns         int
	readBufferSize   int
	handshakeTimeout time.Duration

	mu       sync.Mutex
	listener net.Listener
	sessions map[uint64]session.Session
	closed   bool

	wg sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithTLS makes the server wrap every accepted connection in a server-side
// TLS session. The handshake runs before any application byte is read.
func WithTLS(cfg *tls.Config) Option {
	return func(s *Server) { s.tlsConfig = cfg }
}

// WithMaxConnections caps concurrently accepted connections; further
// dials queue in the kernel backlog until a slot frees.
func WithMaxConnections(n int) Option {
	return func(s *Server) { s.maxConns = n }
}

// WithReadBufferSize sets the per-session read chunk size.
func WithReadBufferSize(n int) Option {
	return func(s *Server) { s.readBufferSize = n }
}

// WithHandshakeTimeout bounds the TLS handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(s *Server) { s.handshakeTimeout = d }
}

// New creates a server that delivers received bytes to receiver.
func New(addr string, receiver session.Receiver, opts ...Option) *Server {
	s := &Server{
		addr:             addr,
		receiver:         receiver,
		handshakeTimeout: 10 * time.Second,
		sessions:         make(map[uint64]session.Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListenAndServe listens on the configured address and serves until
// Shutdown. It always returns a non-nil error; after a clean shutdown
// that error is ErrClosed.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", s.addr)
	}
	return s.Serve(ln)
}

// Serve runs the accept loop on ln. Transient accept errors back off and
// retry; anything else ends the loop.
func (s *Server) Serve(ln net.Listener) error {
	if s.maxConns > 0 {
		ln = netutil.LimitListener(ln, s.maxConns)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return ErrClosed
	}
	s.listener = ln
	s.mu.Unlock()

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return ErrClosed
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if backoff == 0 {
					backoff = 5 * time.Millisecond
				} else {
					backoff *= 2
					if backoff > time.Second {
						backoff = time.Second
					}
				}
				log.Printf("accept failed, retrying in %v: %v", backoff, err)
				time.Sleep(backoff)
				continue
			}
			return errors.Wrap(err, "accept")
		}
		backoff = 0
		metrics.ConnectionsAccepted.Inc()

		s.wg.Add(1)
		go s.handle(conn)
	}
}

// handle owns one accepted connection until its receive loop ends.
func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("connection %s: panic: %v", conn.RemoteAddr(), r)
			conn.Close()
		}
	}()

	session.Tune(conn)

	var opts []session.Option
	if s.readBufferSize > 0 {
		opts = append(opts, session.WithReadBufferSize(s.readBufferSize))
	}

	var sess session.Session
	if s.tlsConfig != nil {
		ts := session.NewTLSServer(conn, s.tlsConfig, s.receiver, opts...)
		ctx, cancel := context.WithTimeout(context.Background(), s.handshakeTimeout)
		err := ts.Handshake(ctx)
		cancel()
		if err != nil {
			metrics.HandshakeFailures.Inc()
			log.Printf("connection %s: TLS handshake failed: %v", conn.RemoteAddr(), err)
			return
		}
		sess = ts
	} else {
		sess = session.NewTCP(conn, s.receiver, opts...)
	}

	if !s.track(sess) {
		sess.Close()
		return
	}
	metrics.SessionsActive.Inc()
	sess.OnDisconnect(func(dead session.Session) {
		s.untrack(dead.ID())
		metrics.SessionsActive.Dec()
	})

	sess.LoopReceive()
}

func (s *Server) track(sess session.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.sessions[sess.ID()] = sess
	return true
}

func (s *Server) untrack(id uint64) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// SessionCount reports currently tracked sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown stops accepting, closes every live session, and waits for the
// receive loops to drain or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.listener
	open := make([]session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	for _, sess := range open {
		sess.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close is Shutdown without a deadline for the receive loops.
func (s *Server) Close() error {
	return s.Shutdown(context.Background())
}
