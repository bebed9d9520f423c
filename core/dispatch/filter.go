package dispatch

// Filter is a cross-cutting hook invoked around action execution. Per
// invocation the effective filter list is the concatenation of the
// dispatcher's global filters, the service instance itself when it exposes
// this interface, and the action-specific filters, in that fixed order.
type Filter interface {
	// OnExecuting runs before the action body. Setting a Result on the
	// context stops the before-phase and suppresses the action entirely.
	OnExecuting(c *ActionContext)

	// OnExecuted runs after the action body. A Result set here overrides
	// the action's own return value.
	OnExecuted(c *ActionContext)

	// OnException runs when execution failed. Marking the context handled
	// stops further propagation.
	OnException(ec *ExceptionContext)
}

// NopFilter is an embeddable no-op implementation of Filter, for filters
// that only care about one phase.
type NopFilter struct{}

func (NopFilter) OnExecuting(*ActionContext)   {}
func (NopFilter) OnExecuted(*ActionContext)    {}
func (NopFilter) OnException(*ExceptionContext) {}

// ExceptionContext wraps an ActionContext plus the caught failure.
type ExceptionContext struct {
	*ActionContext
	Err error

	handled bool
}

// SetHandled suppresses further local propagation of the failure. The peer
// has already been notified by the time exception filters run.
func (ec *ExceptionContext) SetHandled() {
	ec.handled = true
}

// Handled reports whether a filter absorbed the failure.
func (ec *ExceptionContext) Handled() bool {
	return ec.handled
}

// FilterAttributeProvider yields the action-specific filter list for an
// action. It is queried once per dispatch.
type FilterAttributeProvider interface {
	ActionFilters(a *Action) []Filter
}

// declaredFilters is the default provider: the filters attached to the
// Action at registration time.
type declaredFilters struct{}

func (declaredFilters) ActionFilters(a *Action) []Filter {
	return a.Filters
}
