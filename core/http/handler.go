package http

import (
	"context"
	"log"

	"github.com/jerrygaohk/networksocket/core/dispatch"
	"github.com/jerrygaohk/networksocket/core/metrics"
	"github.com/jerrygaohk/networksocket/core/middleware"
	"github.com/jerrygaohk/networksocket/core/router"
	"github.com/jerrygaohk/networksocket/core/serializer"
	"github.com/jerrygaohk/networksocket/core/session"
)

// Item keys for the protocol-specific accessors on an ActionContext.
const (
	ItemRequest     = "http.request"
	ItemRouteParams = "http.params"
)

// Handler services HTTP/1.x over a shared transport. Route lookup matches
// verb+path; unmatched requests fall back to the static responder. Exactly
// one request runs to completion per connection before the next is parsed.
type Handler struct {
	router     *router.Router
	dispatcher *dispatch.Dispatcher
	ser        serializer.Serializer
	static     *StaticResponder
	baseCtx    context.Context
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithStaticRoot enables the static-file fallback under root.
func WithStaticRoot(root string) HandlerOption {
	return func(h *Handler) { h.static = NewStaticResponder(root, 0) }
}

// WithSerializer replaces the default JSON serializer used for action
// parameter binding and result bodies.
func WithSerializer(s serializer.Serializer) HandlerOption {
	return func(h *Handler) { h.ser = s }
}

// NewHandler creates the HTTP protocol handler.
func NewHandler(d *dispatch.Dispatcher, opts ...HandlerOption) *Handler {
	h := &Handler{
		router:     router.New(),
		dispatcher: d,
		ser:        &serializer.JSONSerializer{},
		baseCtx:    context.Background(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Name() string               { return "http" }
func (h *Handler) Protocol() session.Protocol { return session.ProtocolHTTP }

// Route binds method+pattern to an action method on service.
func (h *Handler) Route(method, pattern string, service interface{}, methodName string, filters ...dispatch.Filter) error {
	action, err := dispatch.NewAction(service, methodName, method+" "+pattern)
	if err != nil {
		return err
	}
	action.Filters = filters
	if sr, ok := h.dispatcher.Resolver().(*dispatch.SingletonResolver); ok {
		sr.Register(service)
	}
	h.router.Add(method, pattern, action)
	return nil
}

// GET registers a GET route
func (h *Handler) GET(pattern string, service interface{}, methodName string, filters ...dispatch.Filter) error {
	return h.Route("GET", pattern, service, methodName, filters...)
}

// POST registers a POST route
func (h *Handler) POST(pattern string, service interface{}, methodName string, filters ...dispatch.Filter) error {
	return h.Route("POST", pattern, service, methodName, filters...)
}

// PUT registers a PUT route
func (h *Handler) PUT(pattern string, service interface{}, methodName string, filters ...dispatch.Filter) error {
	return h.Route("PUT", pattern, service, methodName, filters...)
}

// DELETE registers a DELETE route
func (h *Handler) DELETE(pattern string, service interface{}, methodName string, filters ...dispatch.Filter) error {
	return h.Route("DELETE", pattern, service, methodName, filters...)
}

// Offer incrementally parses a request from the session's buffered bytes.
// Incomplete requests leave the buffer untouched. Requests asking for a
// protocol upgrade are declined so a later handler in the chain can take
// over framing.
func (h *Handler) Offer(s session.Session) middleware.Outcome {
	data := s.Buffer().Bytes()

	req, consumed, err := Parse(data)
	switch err {
	case nil:
	case ErrIncomplete:
		return middleware.Incomplete
	case ErrNotHTTP:
		return middleware.NotMine
	default:
		// Recognizably HTTP but unparseable: the framing is lost, answer
		// and drop the connection.
		s.Send(ErrorResponse(400, "Bad Request"))
		s.Close()
		return middleware.Handled
	}

	if req.Upgrade != "" && s.Protocol() == session.ProtocolNone {
		ReleaseRequest(req)
		return middleware.NotMine
	}

	s.Buffer().Clear(consumed)
	h.serve(s, req)
	return middleware.Handled
}

// serve runs one request to completion. It is called from the session's
// receive loop, which is what gives HTTP its strict head-of-line ordering.
func (h *Handler) serve(s session.Session, req *Request) {
	defer ReleaseRequest(req)

	wantsClose := req.WantsClose()

	v, params := h.router.Find(req.Method, req.Path)
	if v == nil {
		h.serveStatic(s, req)
	} else {
		h.serveAction(s, req, v.(*dispatch.Action), params)
	}

	if wantsClose {
		s.Close()
	}
}

func (h *Handler) serveStatic(s session.Session, req *Request) {
	var out []byte
	if h.static != nil {
		out = h.static.Respond(req)
	} else {
		out = ErrorResponse(404, "Not Found")
	}
	if _, err := s.Send(out); err != nil {
		log.Printf("session %d: static response failed: %v", s.ID(), err)
	}
	metrics.RequestsTotal.WithLabelValues("http", "static").Inc()
}

func (h *Handler) serveAction(s session.Session, req *Request, action *dispatch.Action, params map[string]string) {
	var rawArgs [][]byte
	if len(action.ParamTypes) > 0 && len(req.Body) > 0 {
		rawArgs = [][]byte{req.Body}
	}

	c := dispatch.NewContext(h.baseCtx, s, action, h.ser, req.Body, rawArgs, &httpResponder{ser: h.ser})
	c.TerminateService = true
	c.Set(ItemRequest, req)
	c.Set(ItemRouteParams, params)

	if err := h.dispatcher.Execute(c); err != nil {
		log.Printf("session %d: %s %s failed: %v", s.ID(), req.Method, req.Path, err)
		metrics.RequestsTotal.WithLabelValues("http", "error").Inc()
		return
	}
	metrics.RequestsTotal.WithLabelValues("http", "ok").Inc()
}

// httpResponder writes dispatch outcomes as HTTP responses.
type httpResponder struct {
	ser serializer.Serializer
}

func (r *httpResponder) SendResult(c *dispatch.ActionContext, v interface{}) error {
	var contentType string
	var body []byte

	switch val := v.(type) {
	case []byte:
		contentType = "application/octet-stream"
		body = val
	case string:
		contentType = "text/plain; charset=utf-8"
		body = []byte(val)
	default:
		data, err := r.ser.Serialize(v)
		if err != nil {
			return err
		}
		contentType = "application/json"
		body = data
	}

	if !c.MarkResponded() {
		return nil
	}

	resp := NewResponse(200)
	resp.SetBody(contentType, body)
	_, err := c.Session.Send(resp.Bytes())
	return err
}

func (r *httpResponder) SendError(c *dispatch.ActionContext, cause error) error {
	if !c.MarkResponded() {
		return nil
	}
	_, err := c.Session.Send(ErrorResponse(500, cause.Error()))
	return err
}
