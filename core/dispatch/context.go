package dispatch

import (
	"context"
	"reflect"

	"github.com/jerrygaohk/networksocket/core/serializer"
	"github.com/jerrygaohk/networksocket/core/session"
)

// Responder sends an invocation's outcome back to the peer in the owning
// protocol's wire format.
type Responder interface {
	SendResult(c *ActionContext, v interface{}) error
	SendError(c *ActionContext, err error) error
}

// ActionContext is the per-invocation state. It is created per incoming
// message, owned exclusively by the single dispatch processing it, and
// released on every exit path exactly once. All invocation-scoped data
// travels here explicitly; nothing is stashed in goroutine-local state, so
// execution may resume on any worker after a suspension.
type ActionContext struct {
	Ctx        context.Context
	Session    session.Session
	Action     *Action
	Serializer serializer.Serializer
	Responder  Responder

	// Payload is the raw request payload; RawArgs the serializer-encoded
	// value for each declared parameter, bound during step one of dispatch.
	Payload []byte
	RawArgs [][]byte
	Args    []reflect.Value

	// TerminateService makes the dispatcher terminate the resolved service
	// instance when the invocation finishes. Set by the HTTP handler.
	TerminateService bool

	items map[string]interface{}

	result    interface{}
	hasResult bool
	returned  interface{}
	responded bool
	released  bool
}

// NewContext creates the context for one incoming message.
func NewContext(ctx context.Context, s session.Session, a *Action, ser serializer.Serializer, payload []byte, rawArgs [][]byte, r Responder) *ActionContext {
	return &ActionContext{
		Ctx:        ctx,
		Session:    s,
		Action:     a,
		Serializer: ser,
		Payload:    payload,
		RawArgs:    rawArgs,
		Responder:  r,
	}
}

// SetResult sets an early-exit or override result. During the before-phase
// it suppresses the action body; during the after-phase it replaces the
// action's return value.
func (c *ActionContext) SetResult(v interface{}) {
	c.result = v
	c.hasResult = true
}

// Result returns the filter-set result, if any.
func (c *ActionContext) Result() (interface{}, bool) {
	return c.result, c.hasResult
}

// Returned is the action body's own return value, available to
// after-phase filters.
func (c *ActionContext) Returned() interface{} {
	return c.returned
}

// Set stores invocation-scoped data.
func (c *ActionContext) Set(key string, v interface{}) {
	if c.items == nil {
		c.items = make(map[string]interface{}, 4)
	}
	c.items[key] = v
}

// Get reads invocation-scoped data.
func (c *ActionContext) Get(key string) (interface{}, bool) {
	v, ok := c.items[key]
	return v, ok
}

// MarkResponded records that a response frame went out for this
// invocation. The first caller wins; responders use this to keep response
// semantics exactly-once.
func (c *ActionContext) MarkResponded() bool {
	if c.responded {
		return false
	}
	c.responded = true
	return true
}

// release drops per-invocation state. Idempotent; called from the single
// teardown point in Execute.
func (c *ActionContext) release() {
	if c.released {
		return
	}
	c.released = true
	c.Payload = nil
	c.RawArgs = nil
	c.Args = nil
	c.items = nil
}
