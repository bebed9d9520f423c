package middleware

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jerrygaohk/networksocket/core/buffer"
	"github.com/jerrygaohk/networksocket/core/session"
)

// fakeSession implements session.Session in memory.
type fakeSession struct {
	buf       *buffer.ReceiveBuffer
	protocol  session.Protocol
	connected bool
	sent      [][]byte
}

func newFakeSession(data []byte) *fakeSession {
	fs := &fakeSession{buf: buffer.New(0), connected: true}
	fs.buf.Write(data)
	return fs
}

func (f *fakeSession) ID() uint64                          { return 1 }
func (f *fakeSession) RemoteAddr() net.Addr                { return nil }
func (f *fakeSession) Buffer() *buffer.ReceiveBuffer       { return f.buf }
func (f *fakeSession) Protocol() session.Protocol          { return f.protocol }
func (f *fakeSession) IsConnected() bool                   { return f.connected }
func (f *fakeSession) IsSecure() bool                      { return false }
func (f *fakeSession) OnDisconnect(func(session.Session))  {}
func (f *fakeSession) LoopReceive()                        {}

func (f *fakeSession) SetProtocol(p session.Protocol) bool {
	if f.protocol != session.ProtocolNone {
		return false
	}
	f.protocol = p
	return true
}

func (f *fakeSession) Send(p []byte) (int, error) {
	if !f.connected {
		return 0, session.ErrNotConnected
	}
	f.sent = append(f.sent, append([]byte(nil), p...))
	return len(p), nil
}

func (f *fakeSession) Close() error {
	f.connected = false
	return nil
}

// scriptedHandler returns canned outcomes and counts offers.
type scriptedHandler struct {
	name    string
	proto   session.Protocol
	outcome Outcome
	consume bool // consume the whole buffer when returning Handled
	offers  int
}

func (h *scriptedHandler) Name() string               { return h.name }
func (h *scriptedHandler) Protocol() session.Protocol { return h.proto }

func (h *scriptedHandler) Offer(s session.Session) Outcome {
	h.offers++
	if h.outcome == Handled && h.consume {
		s.Buffer().Clear(s.Buffer().Len())
	}
	return h.outcome
}

func TestChainDetectionOrder(t *testing.T) {
	first := &scriptedHandler{name: "first", proto: session.ProtocolFast, outcome: NotMine}
	second := &scriptedHandler{name: "second", proto: session.ProtocolHTTP, outcome: Handled, consume: true}

	chain := NewChain(first, second)
	fs := newFakeSession([]byte("payload"))

	chain.OnReceive(fs)

	assert.Equal(t, 1, first.offers)
	assert.Equal(t, 1, second.offers)
	assert.Equal(t, session.ProtocolHTTP, fs.Protocol(), "claiming handler must pin the session")
	assert.True(t, fs.connected)
}

func TestChainIncompleteStopsWalk(t *testing.T) {
	first := &scriptedHandler{name: "first", proto: session.ProtocolFast, outcome: Incomplete}
	second := &scriptedHandler{name: "second", proto: session.ProtocolHTTP, outcome: Handled}

	chain := NewChain(first, second)
	fs := newFakeSession([]byte{0x00})

	chain.OnReceive(fs)

	assert.Equal(t, 1, first.offers)
	assert.Zero(t, second.offers, "incomplete must keep bytes for the same handler")
	assert.Equal(t, session.ProtocolNone, fs.Protocol())
	assert.Equal(t, 1, fs.buf.Len(), "bytes must remain buffered")
}

// TestChainPinnedBypassesDetection verifies that once a protocol is pinned,
// earlier handlers never re-run detection.
func TestChainPinnedBypassesDetection(t *testing.T) {
	first := &scriptedHandler{name: "first", proto: session.ProtocolFast, outcome: NotMine}
	second := &scriptedHandler{name: "second", proto: session.ProtocolHTTP, outcome: Handled, consume: true}

	chain := NewChain(first, second)
	fs := newFakeSession([]byte("one"))

	chain.OnReceive(fs)
	assert.Equal(t, 1, first.offers)

	// Subsequent receives go straight to the pinned handler.
	fs.buf.Write([]byte("two"))
	chain.OnReceive(fs)
	fs.buf.Write([]byte("three"))
	chain.OnReceive(fs)

	assert.Equal(t, 1, first.offers, "detection must not re-run after pinning")
	assert.Equal(t, 3, second.offers)
}

func TestChainAllDeclineCloses(t *testing.T) {
	first := &scriptedHandler{name: "first", proto: session.ProtocolFast, outcome: NotMine}
	second := &scriptedHandler{name: "second", proto: session.ProtocolHTTP, outcome: NotMine}

	chain := NewChain(first, second)
	fs := newFakeSession([]byte("\x00garbage"))

	chain.OnReceive(fs)

	assert.False(t, fs.connected, "unrecognized protocol must close the connection")
	assert.Equal(t, session.ProtocolNone, fs.Protocol())
}

// TestChainPinnedReject verifies a pinned handler flipping to NotMine
// mid-stream terminates the session instead of re-running detection.
func TestChainPinnedReject(t *testing.T) {
	h := &scriptedHandler{name: "flip", proto: session.ProtocolFast, outcome: NotMine}

	chain := NewChain(h)
	fs := newFakeSession([]byte("data"))
	fs.SetProtocol(session.ProtocolFast)

	chain.OnReceive(fs)

	assert.False(t, fs.connected)
}

func TestChainDrainsMultipleFrames(t *testing.T) {
	// A handler that consumes fixed 2-byte frames.
	framer := &framingHandler{}
	chain := NewChain(framer)
	fs := newFakeSession([]byte("aabbcc"))

	chain.OnReceive(fs)

	assert.Equal(t, 3, framer.frames, "all buffered frames must be dispatched")
	assert.Zero(t, fs.buf.Len())
}

type framingHandler struct {
	frames int
}

func (h *framingHandler) Name() string               { return "framer" }
func (h *framingHandler) Protocol() session.Protocol { return session.ProtocolFast }

func (h *framingHandler) Offer(s session.Session) Outcome {
	if s.Buffer().Len() < 2 {
		return Incomplete
	}
	s.Buffer().Clear(2)
	h.frames++
	return Handled
}
