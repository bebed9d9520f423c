package fast

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jerrygaohk/networksocket/core/buffer"
	"github.com/jerrygaohk/networksocket/core/dispatch"
	"github.com/jerrygaohk/networksocket/core/middleware"
	"github.com/jerrygaohk/networksocket/core/pool"
	"github.com/jerrygaohk/networksocket/core/serializer"
	"github.com/jerrygaohk/networksocket/core/session"
)

type fakeSession struct {
	mu        sync.Mutex
	buf       *buffer.ReceiveBuffer
	protocol  session.Protocol
	connected bool
	sent      chan []byte
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		buf:       buffer.New(0),
		connected: true,
		sent:      make(chan []byte, 16),
	}
}

func (f *fakeSession) ID() uint64                         { return 1 }
func (f *fakeSession) RemoteAddr() net.Addr               { return nil }
func (f *fakeSession) Buffer() *buffer.ReceiveBuffer      { return f.buf }
func (f *fakeSession) IsSecure() bool                     { return false }
func (f *fakeSession) OnDisconnect(func(session.Session)) {}
func (f *fakeSession) LoopReceive()                       {}

func (f *fakeSession) Protocol() session.Protocol {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.protocol
}

func (f *fakeSession) SetProtocol(p session.Protocol) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.protocol != session.ProtocolNone {
		return false
	}
	f.protocol = p
	return true
}

func (f *fakeSession) Send(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return 0, session.ErrNotConnected
	}
	f.sent <- append([]byte(nil), p...)
	return len(p), nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeSession) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

type echoService struct{}

func (s *echoService) Echo(v string) string { return v }

func newEchoHandler(t *testing.T) *Handler {
	t.Helper()
	d := dispatch.New()
	reg := NewRegistry(d)
	if err := reg.Register("", &echoService{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	h := NewHandler(d, reg)
	t.Cleanup(h.Close)
	return h
}

func encodeRequest(t *testing.T, ser serializer.Serializer, api string, id int64, params ...interface{}) []byte {
	t.Helper()
	var raw [][]byte
	for _, p := range params {
		b, err := ser.Serialize(p)
		if err != nil {
			t.Fatalf("serialize param: %v", err)
		}
		raw = append(raw, b)
	}
	body, err := ser.Serialize(&Message{API: api, ID: id, Params: raw})
	if err != nil {
		t.Fatalf("serialize message: %v", err)
	}
	return EncodeFrame(body)
}

func awaitResponse(t *testing.T, fs *fakeSession) Message {
	t.Helper()
	select {
	case frame := <-fs.sent:
		assert.GreaterOrEqual(t, len(frame), LengthPrefixSize)
		assert.Equal(t, len(frame)-LengthPrefixSize, DeclaredLength(frame))
		var msg Message
		ser := &serializer.JSONSerializer{}
		if err := ser.Deserialize(frame[LengthPrefixSize:], &msg); err != nil {
			t.Fatalf("deserialize response: %v", err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no response frame sent")
		return Message{}
	}
}

// TestEchoRoundTrip covers the canonical scenario: an Echo request yields
// a response payload equal to the serialized argument.
func TestEchoRoundTrip(t *testing.T) {
	h := newEchoHandler(t)
	ser := &serializer.JSONSerializer{}

	fs := newFakeSession()
	fs.buf.Write(encodeRequest(t, ser, "Echo", 1, "x"))

	outcome := h.Offer(fs)
	assert.Equal(t, middleware.Handled, outcome)
	assert.Zero(t, fs.buf.Len(), "frame must be fully consumed")

	msg := awaitResponse(t, fs)
	assert.True(t, msg.State)
	assert.Equal(t, "Echo", msg.API)
	assert.Equal(t, int64(1), msg.ID)

	var got string
	assert.NoError(t, ser.Deserialize(msg.Data, &got))
	assert.Equal(t, "x", got)
}

// TestFragmentedFrame feeds a frame in several fragments and verifies it
// dispatches exactly once, with the buffer reduced by exactly L+4.
func TestFragmentedFrame(t *testing.T) {
	h := newEchoHandler(t)
	ser := &serializer.JSONSerializer{}

	frame := encodeRequest(t, ser, "Echo", 2, "fragmented")
	fs := newFakeSession()

	for i := 0; i < len(frame)-1; i += 3 {
		end := i + 3
		if end > len(frame)-1 {
			end = len(frame) - 1
		}
		fs.buf.Write(frame[i:end])
		assert.Equal(t, middleware.Incomplete, h.Offer(fs))
	}

	before := fs.buf.Len()
	fs.buf.Write(frame[len(frame)-1:])
	assert.Equal(t, middleware.Handled, h.Offer(fs))
	assert.Equal(t, before+1-len(frame), fs.buf.Len())

	msg := awaitResponse(t, fs)
	assert.True(t, msg.State)

	select {
	case <-fs.sent:
		t.Fatal("frame dispatched more than once")
	case <-time.After(50 * time.Millisecond):
	}
}

// gateService has one action that blocks until released and one that
// returns immediately.
type gateService struct {
	gate chan struct{}
}

func (s *gateService) Slow(v string) string {
	<-s.gate
	return v
}

func (s *gateService) Quick(v string) string { return v }

// TestOutOfOrderCompletion dispatches two packets on one session, the
// first one slow. The quick packet's response must not wait behind it:
// responses carry IDs precisely because completion order is unordered.
func TestOutOfOrderCompletion(t *testing.T) {
	d := dispatch.New()
	svc := &gateService{gate: make(chan struct{})}
	reg := NewRegistry(d)
	if err := reg.Register("", svc); err != nil {
		t.Fatalf("register: %v", err)
	}
	workers := pool.NewWorkerPool(2, 4)
	h := NewHandler(d, reg, WithWorkerPool(workers))
	t.Cleanup(h.Close)

	var once sync.Once
	release := func() { once.Do(func() { close(svc.gate) }) }
	// Runs before h.Close so a failed assertion cannot deadlock Close.
	t.Cleanup(release)

	ser := &serializer.JSONSerializer{}
	fs := newFakeSession()

	fs.buf.Write(encodeRequest(t, ser, "Slow", 1, "tortoise"))
	assert.Equal(t, middleware.Handled, h.Offer(fs))
	fs.buf.Write(encodeRequest(t, ser, "Quick", 2, "hare"))
	assert.Equal(t, middleware.Handled, h.Offer(fs))

	first := awaitResponse(t, fs)
	assert.Equal(t, int64(2), first.ID, "quick response must overtake the blocked one")

	release()
	second := awaitResponse(t, fs)
	assert.Equal(t, int64(1), second.ID)

	var got string
	assert.NoError(t, ser.Deserialize(second.Data, &got))
	assert.Equal(t, "tortoise", got)
}

// TestDetection verifies the claim heuristics: short prefixes wait,
// implausible lengths are someone else's protocol.
func TestDetection(t *testing.T) {
	h := newEchoHandler(t)

	fs := newFakeSession()
	fs.buf.Write([]byte{0x00, 0x00})
	assert.Equal(t, middleware.Incomplete, h.Offer(fs))

	// "GET " as a length prefix is ~1.2GB: not a Fast frame.
	fs = newFakeSession()
	fs.buf.Write([]byte("GET / HTTP/1.1\r\n"))
	assert.Equal(t, middleware.NotMine, h.Offer(fs))

	// Zero-length body is not a valid frame either.
	fs = newFakeSession()
	fs.buf.Write([]byte{0x00, 0x00, 0x00, 0x00})
	assert.Equal(t, middleware.NotMine, h.Offer(fs))
}

// TestUnknownAction verifies an unmapped action name produces a remote
// error packet and leaves the session open.
func TestUnknownAction(t *testing.T) {
	h := newEchoHandler(t)
	ser := &serializer.JSONSerializer{}

	fs := newFakeSession()
	fs.buf.Write(encodeRequest(t, ser, "Nope", 3))

	assert.Equal(t, middleware.Handled, h.Offer(fs))

	msg := awaitResponse(t, fs)
	assert.False(t, msg.State)
	assert.Contains(t, msg.Error, "action not found")
	assert.True(t, fs.IsConnected(), "protocol errors must not close the session")
}

// TestActionError verifies an action failure reaches the peer as a
// remote-exception packet.
func TestActionError(t *testing.T) {
	d := dispatch.New()
	reg := NewRegistry(d)
	assert.NoError(t, reg.Register("", &failingService{}))
	h := NewHandler(d, reg)
	t.Cleanup(h.Close)

	ser := &serializer.JSONSerializer{}
	fs := newFakeSession()
	fs.buf.Write(encodeRequest(t, ser, "Explode", 4))

	assert.Equal(t, middleware.Handled, h.Offer(fs))

	msg := awaitResponse(t, fs)
	assert.False(t, msg.State)
	assert.Contains(t, msg.Error, "exploded")
}

type failingService struct{}

func (s *failingService) Explode() (string, error) {
	return "", errors.New("exploded")
}
