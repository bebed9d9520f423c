package fast

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"github.com/jerrygaohk/networksocket/core/dispatch"
	"github.com/jerrygaohk/networksocket/core/metrics"
	"github.com/jerrygaohk/networksocket/core/middleware"
	"github.com/jerrygaohk/networksocket/core/pool"
	"github.com/jerrygaohk/networksocket/core/serializer"
	"github.com/jerrygaohk/networksocket/core/session"
)

// Handler services the Fast binary RPC protocol: length-prefixed packets,
// one action lookup per packet. Distinct packets on one session dispatch
// concurrently on the worker pool and may complete out of arrival order.
type Handler struct {
	registry   *Registry
	dispatcher *dispatch.Dispatcher
	ser        serializer.Serializer
	workers    *pool.WorkerPool
	maxFrame   int
	baseCtx    context.Context
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithSerializer replaces the default JSON serializer.
func WithSerializer(s serializer.Serializer) HandlerOption {
	return func(h *Handler) { h.ser = s }
}

// WithMaxFrameSize bounds accepted frame bodies.
func WithMaxFrameSize(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxFrame = n
		}
	}
}

// WithWorkerPool replaces the default dispatch pool.
func WithWorkerPool(p *pool.WorkerPool) HandlerOption {
	return func(h *Handler) { h.workers = p }
}

// NewHandler creates the Fast protocol handler.
func NewHandler(d *dispatch.Dispatcher, reg *Registry, opts ...HandlerOption) *Handler {
	h := &Handler{
		registry:   reg,
		dispatcher: d,
		ser:        &serializer.JSONSerializer{},
		maxFrame:   DefaultMaxFrameSize,
		baseCtx:    context.Background(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.workers == nil {
		h.workers = pool.NewWorkerPool(0, 256)
	}
	return h
}

func (h *Handler) Name() string               { return "fast" }
func (h *Handler) Protocol() session.Protocol { return session.ProtocolFast }

// Close drains the dispatch pool.
func (h *Handler) Close() {
	h.workers.Close()
}

// Offer inspects the session's buffered bytes. Fewer than four bytes
// cannot be ruled in or out, so the chain waits; an implausible declared
// length means the stream is not Fast; otherwise the frame is consumed
// once complete. The buffer shrinks by exactly length+4 per frame.
func (h *Handler) Offer(s session.Session) middleware.Outcome {
	buf := s.Buffer()
	if buf.Len() < LengthPrefixSize {
		return middleware.Incomplete
	}

	declared := DeclaredLength(buf.Peek(LengthPrefixSize))
	if declared == 0 || declared > h.maxFrame {
		return middleware.NotMine
	}

	total := LengthPrefixSize + declared
	if buf.Len() < total {
		return middleware.Incomplete
	}

	body := append([]byte(nil), buf.Bytes()[LengthPrefixSize:total]...)
	buf.Clear(total)

	h.dispatchFrame(s, body)
	return middleware.Handled
}

// dispatchFrame decodes one packet body and hands the invocation to the
// worker pool. The receive loop is never blocked by a slow action.
func (h *Handler) dispatchFrame(s session.Session, body []byte) {
	var msg Message
	if err := h.ser.Deserialize(body, &msg); err != nil {
		// Malformed packet: report and keep the session open.
		log.Printf("session %d: malformed fast packet: %v", s.ID(), err)
		h.notify(s, &msg, errors.Wrap(err, "malformed packet"))
		metrics.RequestsTotal.WithLabelValues("fast", "malformed").Inc()
		return
	}

	action, ok := h.registry.Find(msg.API)
	if !ok {
		h.notify(s, &msg, errors.Wrapf(dispatch.ErrActionNotFound, "%q", msg.API))
		metrics.RequestsTotal.WithLabelValues("fast", "unmapped").Inc()
		return
	}

	c := dispatch.NewContext(h.baseCtx, s, action, h.ser, body, msg.Params,
		&fastResponder{ser: h.ser, api: msg.API, id: msg.ID})

	h.workers.Submit(func() {
		if err := h.dispatcher.Execute(c); err != nil {
			log.Printf("session %d: fast %s failed: %v", s.ID(), msg.API, err)
			metrics.RequestsTotal.WithLabelValues("fast", "error").Inc()
			return
		}
		metrics.RequestsTotal.WithLabelValues("fast", "ok").Inc()
	})
}

// notify sends a remote-exception packet outside the dispatch pipeline,
// for failures that never produced an ActionContext.
func (h *Handler) notify(s session.Session, msg *Message, cause error) {
	body, err := h.ser.Serialize(&Message{
		API:   msg.API,
		ID:    msg.ID,
		State: false,
		Error: cause.Error(),
	})
	if err != nil {
		return
	}
	if _, err := s.Send(EncodeFrame(body)); err != nil {
		log.Printf("session %d: error notification failed: %v", s.ID(), err)
	}
}

// fastResponder writes dispatch outcomes as Fast response packets.
type fastResponder struct {
	ser serializer.Serializer
	api string
	id  int64
}

func (r *fastResponder) SendResult(c *dispatch.ActionContext, v interface{}) error {
	data, err := r.ser.Serialize(v)
	if err != nil {
		return errors.Wrap(err, "serialize result")
	}
	body, err := r.ser.Serialize(&Message{API: r.api, ID: r.id, State: true, Data: data})
	if err != nil {
		return errors.Wrap(err, "serialize response")
	}
	if !c.MarkResponded() {
		return nil
	}
	_, err = c.Session.Send(EncodeFrame(body))
	return err
}

func (r *fastResponder) SendError(c *dispatch.ActionContext, cause error) error {
	body, err := r.ser.Serialize(&Message{API: r.api, ID: r.id, State: false, Error: cause.Error()})
	if err != nil {
		return errors.Wrap(err, "serialize error response")
	}
	if !c.MarkResponded() {
		return nil
	}
	_, err = c.Session.Send(EncodeFrame(body))
	return err
}
