package middleware

import (
	"log"

	"github.com/jerrygaohk/networksocket/core/metrics"
	"github.com/jerrygaohk/networksocket/core/session"
)

// Outcome is a protocol handler's verdict on a session's buffered bytes.
type Outcome int

const (
	// NotMine: the buffered bytes do not belong to this protocol.
	NotMine Outcome = iota
	// Incomplete: the bytes look like this protocol but a full frame has
	// not arrived yet; keep them and wait for the next receive event.
	Incomplete
	// Handled: a complete frame was consumed and a dispatch started.
	Handled
)

// ProtocolHandler recognizes and services one application protocol.
// Offer inspects the session's buffered bytes; it must not discard any
// byte unless it returns Handled for a fully parsed frame.
type ProtocolHandler interface {
	Name() string
	Protocol() session.Protocol
	Offer(s session.Session) Outcome
}

// Chain drives protocol detection as an ordered handler list. Until a
// session is pinned, each receive event walks the list in registration
// order; after pinning, detection is bypassed and bytes go straight to the
// pinned handler. When every handler declines, the connection cannot be
// serviced and is closed.
type Chain struct {
	handlers []ProtocolHandler
	byProto  map[session.Protocol]ProtocolHandler
}

// NewChain creates a chain over the given handlers, tried in order.
func NewChain(handlers ...ProtocolHandler) *Chain {
	c := &Chain{byProto: make(map[session.Protocol]ProtocolHandler)}
	for _, h := range handlers {
		c.Use(h)
	}
	return c
}

// Use appends a handler to the detection order.
func (c *Chain) Use(h ProtocolHandler) {
	c.handlers = append(c.handlers, h)
	c.byProto[h.Protocol()] = h
}

// OnReceive implements session.Receiver. It is invoked from the session's
// receive loop after each append to the receive buffer.
func (c *Chain) OnReceive(s session.Session) {
	if p := s.Protocol(); p != session.ProtocolNone {
		c.drain(s, c.byProto[p])
		return
	}

	for _, h := range c.handlers {
		switch h.Offer(s) {
		case Handled:
			s.SetProtocol(h.Protocol())
			// More frames may already be buffered behind the first.
			c.drain(s, h)
			return
		case Incomplete:
			return
		}
	}

	// Every handler declined: protocol-unrecognized, close the connection.
	if s.Buffer().Len() > 0 {
		log.Printf("session %d: unrecognized protocol, closing", s.ID())
		metrics.UnrecognizedProtocols.Inc()
		s.Close()
	}
}

// drain feeds the pinned handler until it stops consuming complete frames.
// A pinned handler returning NotMine is a protocol violation mid-stream;
// handlers must not flip-flop their claim, so the session is closed.
func (c *Chain) drain(s session.Session, h ProtocolHandler) {
	if h == nil {
		s.Close()
		return
	}
	for s.IsConnected() && s.Buffer().Len() > 0 {
		switch h.Offer(s) {
		case Handled:
			continue
		case Incomplete:
			return
		case NotMine:
			log.Printf("session %d: pinned handler %s rejected mid-stream, closing", s.ID(), h.Name())
			s.Close()
			return
		}
	}
}
