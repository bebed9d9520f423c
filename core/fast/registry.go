package fast

import (
	"reflect"
	"sort"

	"github.com/pkg/errors"

	"github.com/jerrygaohk/networksocket/core/dispatch"
)

// filter-capability methods are never exposed as actions
var filterMethods = map[string]bool{
	"OnExecuting": true,
	"OnExecuted":  true,
	"OnException": true,
}

// Registry maps Fast action names to resolved actions. Built at startup,
// read-only afterwards and shared across all sessions.
type Registry struct {
	actions  map[string]*dispatch.Action
	resolver interface{ Register(v interface{}) }
}

// NewRegistry creates a registry. When the dispatcher's resolver supports
// singleton registration, registered service instances are stored there so
// invocations resolve to the same instance.
func NewRegistry(d *dispatch.Dispatcher) *Registry {
	r := &Registry{actions: make(map[string]*dispatch.Action)}
	if sr, ok := d.Resolver().(*dispatch.SingletonResolver); ok {
		r.resolver = sr
	}
	return r
}

// Register scans the exported methods of service and exposes each
// supported one under "name.Method", or the bare method name when name is
// empty. The optional filters attach to every discovered action.
func (r *Registry) Register(name string, service interface{}, filters ...dispatch.Filter) error {
	st := reflect.TypeOf(service)

	found := 0
	for i := 0; i < st.NumMethod(); i++ {
		m := st.Method(i)
		if m.PkgPath != "" || filterMethods[m.Name] {
			continue
		}

		key := m.Name
		if name != "" {
			key = name + "." + m.Name
		}

		action, err := dispatch.NewAction(service, m.Name, key)
		if err != nil {
			// Unsupported signature, skip
			continue
		}
		action.Filters = filters
		r.actions[key] = action
		found++
	}

	if found == 0 {
		return errors.Errorf("%s exposes no dispatchable methods", st)
	}
	if r.resolver != nil {
		r.resolver.Register(service)
	}
	return nil
}

// Find returns the action registered under api.
func (r *Registry) Find(api string) (*dispatch.Action, bool) {
	a, ok := r.actions[api]
	return a, ok
}

// Actions lists registered action names.
func (r *Registry) Actions() []string {
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
