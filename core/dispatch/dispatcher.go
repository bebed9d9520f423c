package dispatch

import (
	"log"
	"reflect"

	"github.com/pkg/errors"
)

// Dispatcher is the protocol-agnostic action execution pipeline: bind
// parameters, run the before-phase filters, invoke the action, run the
// after-phase, send the serialized result, and funnel any failure through
// the exception phase. Per-invocation context state is released on every
// exit path, exactly once.
type Dispatcher struct {
	globals  []Filter
	resolver DependencyResolver
	provider FilterAttributeProvider
}

// Option configures a dispatcher.
type Option func(*Dispatcher)

// WithResolver replaces the default singleton resolver.
func WithResolver(r DependencyResolver) Option {
	return func(d *Dispatcher) { d.resolver = r }
}

// WithFilterProvider replaces the source of action-specific filters.
func WithFilterProvider(p FilterAttributeProvider) Option {
	return func(d *Dispatcher) { d.provider = p }
}

// New creates a dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		resolver: NewSingletonResolver(),
		provider: declaredFilters{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Use appends a global filter. Global filters run first, before the
// service-as-filter and the action's own filters.
func (d *Dispatcher) Use(f Filter) {
	d.globals = append(d.globals, f)
}

// Resolver exposes the dependency resolver so protocol registries can
// register service singletons.
func (d *Dispatcher) Resolver() DependencyResolver {
	return d.resolver
}

// Execute runs one invocation to completion. The returned error is non-nil
// only when a failure passed through the whole exception phase unhandled;
// the owning protocol handler must treat that as fatal for the request.
// The peer is notified of a failure at the moment it first enters the
// dispatcher, independent of whether a later filter marks it handled.
func (d *Dispatcher) Execute(c *ActionContext) error {
	defer c.release()

	svc, rerr := d.resolver.GetService(c.Action.ServiceType)
	if rerr != nil {
		d.notifyPeer(c, rerr)
		return rerr
	}
	if c.TerminateService {
		defer d.resolver.TerminateService(svc)
	}

	filters := d.composeFilters(svc, c.Action)

	execErr := d.run(c, svc, filters)
	if execErr == nil {
		return nil
	}

	d.notifyPeer(c, execErr)

	ec := &ExceptionContext{ActionContext: c, Err: execErr}
	for _, f := range filters {
		f.OnException(ec)
		if ec.Handled() {
			return nil
		}
	}
	return execErr
}

// run covers binding, the filter phases, the action body and the response
// write. Panics in any of them surface as errors.
func (d *Dispatcher) run(c *ActionContext, svc interface{}, filters []Filter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("action panic: %v", r)
		}
	}()

	if berr := d.bind(c); berr != nil {
		return errors.Wrap(berr, "parameter binding")
	}

	early := false
	for _, f := range filters {
		f.OnExecuting(c)
		if c.hasResult {
			early = true
			break
		}
	}

	if !early {
		ret, aerr := c.Action.Invoke(c.Ctx, svc, c.Args)
		if aerr != nil {
			return aerr
		}
		c.returned = ret

		for _, f := range filters {
			f.OnExecuted(c)
		}
	}

	return d.respond(c)
}

// bind deserializes the raw parameter values into the action's declared
// types. A mismatch or decode failure surfaces as an execution exception,
// never a silent default.
func (d *Dispatcher) bind(c *ActionContext) error {
	want := len(c.Action.ParamTypes)
	if len(c.RawArgs) != want {
		return errors.Errorf("%s expects %d parameters, got %d", c.Action.Key, want, len(c.RawArgs))
	}
	if want == 0 {
		return nil
	}

	c.Args = make([]reflect.Value, want)
	for i, t := range c.Action.ParamTypes {
		pv := reflect.New(t)
		if err := c.Serializer.Deserialize(c.RawArgs[i], pv.Interface()); err != nil {
			return errors.Wrapf(err, "parameter %d", i)
		}
		c.Args[i] = pv.Elem()
	}
	return nil
}

// respond writes the invocation outcome. A filter-set Result wins over the
// action's return value; void actions with no override send nothing.
// Liveness is checked before the final write so a torn-down session fails
// fast instead of retrying.
func (d *Dispatcher) respond(c *ActionContext) error {
	if v, ok := c.Result(); ok {
		if !c.Session.IsConnected() {
			return nil
		}
		return c.Responder.SendResult(c, v)
	}
	if c.Action.HasReturn && c.Session.IsConnected() {
		return c.Responder.SendResult(c, c.returned)
	}
	return nil
}

func (d *Dispatcher) notifyPeer(c *ActionContext, err error) {
	if c.Responder == nil || !c.Session.IsConnected() {
		return
	}
	if serr := c.Responder.SendError(c, err); serr != nil {
		log.Printf("session %d: error notification failed: %v", c.Session.ID(), serr)
	}
}

func (d *Dispatcher) composeFilters(svc interface{}, a *Action) []Filter {
	filters := make([]Filter, 0, len(d.globals)+1+len(a.Filters))
	filters = append(filters, d.globals...)
	if sf, ok := svc.(Filter); ok {
		filters = append(filters, sf)
	}
	filters = append(filters, d.provider.ActionFilters(a)...)
	return filters
}
