package dispatch

import (
	"context"
	"reflect"

	"github.com/pkg/errors"
)

var (
	ErrActionNotFound = errors.New("action not found")
)

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// Action is the immutable metadata of one invocable server operation,
// resolved once at startup and shared read-only across all sessions.
//
// Supported method shapes, with an optional leading context.Context:
//
//	func (s *Svc) M(ctx context.Context, args...) (T, error)
//	func (s *Svc) M(args...) T
//	func (s *Svc) M(args...) error
//	func (s *Svc) M(args...)
type Action struct {
	ServiceName string
	ServiceType reflect.Type
	MethodName  string

	// Key is the protocol-specific match key: the action name for Fast,
	// verb+path for HTTP.
	Key string

	// ParamTypes are the declared parameters, receiver and context excluded.
	ParamTypes []reflect.Type

	// HasReturn reports a value result beyond the trailing error.
	HasReturn bool

	// Filters declared on this specific action.
	Filters []Filter

	method     reflect.Method
	takesCtx   bool
	returnsErr bool
}

// NewAction builds an Action for the named method of service.
func NewAction(service interface{}, methodName, key string) (*Action, error) {
	st := reflect.TypeOf(service)
	m, ok := st.MethodByName(methodName)
	if !ok {
		return nil, errors.Errorf("method %s not found on %s", methodName, st)
	}
	return newAction(st, m, key)
}

func newAction(st reflect.Type, m reflect.Method, key string) (*Action, error) {
	mt := m.Type
	a := &Action{
		ServiceName: st.String(),
		ServiceType: st,
		MethodName:  m.Name,
		Key:         key,
		method:      m,
	}

	in := 1 // skip receiver
	if mt.NumIn() > in && mt.In(in) == ctxType {
		a.takesCtx = true
		in++
	}
	for ; in < mt.NumIn(); in++ {
		a.ParamTypes = append(a.ParamTypes, mt.In(in))
	}

	switch mt.NumOut() {
	case 0:
	case 1:
		if mt.Out(0) == errType {
			a.returnsErr = true
		} else {
			a.HasReturn = true
		}
	case 2:
		if mt.Out(1) != errType {
			return nil, errors.Errorf("%s.%s: second return value must be error", st, m.Name)
		}
		a.HasReturn = true
		a.returnsErr = true
	default:
		return nil, errors.Errorf("%s.%s: too many return values", st, m.Name)
	}

	return a, nil
}

// Invoke calls the action body on svc with the bound arguments.
func (a *Action) Invoke(ctx context.Context, svc interface{}, args []reflect.Value) (interface{}, error) {
	callArgs := make([]reflect.Value, 0, len(args)+2)
	callArgs = append(callArgs, reflect.ValueOf(svc))
	if a.takesCtx {
		if ctx == nil {
			ctx = context.Background()
		}
		callArgs = append(callArgs, reflect.ValueOf(ctx))
	}
	callArgs = append(callArgs, args...)

	out := a.method.Func.Call(callArgs)

	var ret interface{}
	if a.HasReturn {
		ret = out[0].Interface()
	}
	if a.returnsErr {
		if ev := out[len(out)-1]; !ev.IsNil() {
			return ret, ev.Interface().(error)
		}
	}
	return ret, nil
}
