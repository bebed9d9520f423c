package dispatch

import (
	"io"
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// DependencyResolver supplies service instances for action invocation and
// tears them down afterwards. A DI container plugs in here; the default is
// a singleton registry.
type DependencyResolver interface {
	GetService(t reflect.Type) (interface{}, error)
	TerminateService(v interface{})
}

// SingletonResolver resolves types registered up front to a shared
// instance and constructs throwaway instances for anything else.
type SingletonResolver struct {
	mu        sync.RWMutex
	instances map[reflect.Type]interface{}
}

// NewSingletonResolver creates an empty resolver.
func NewSingletonResolver() *SingletonResolver {
	return &SingletonResolver{instances: make(map[reflect.Type]interface{})}
}

// Register stores v as the shared instance for its concrete type.
func (r *SingletonResolver) Register(v interface{}) {
	r.mu.Lock()
	r.instances[reflect.TypeOf(v)] = v
	r.mu.Unlock()
}

// GetService returns the registered singleton for t, or a freshly
// constructed instance for unregistered pointer-to-struct types.
func (r *SingletonResolver) GetService(t reflect.Type) (interface{}, error) {
	r.mu.RLock()
	v, ok := r.instances[t]
	r.mu.RUnlock()
	if ok {
		return v, nil
	}
	if t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct {
		return reflect.New(t.Elem()).Interface(), nil
	}
	return nil, errors.Errorf("no service registered for %s", t)
}

// TerminateService closes transient instances that own resources.
// Registered singletons outlive individual requests and are left alone.
func (r *SingletonResolver) TerminateService(v interface{}) {
	t := reflect.TypeOf(v)
	r.mu.RLock()
	registered, ok := r.instances[t]
	r.mu.RUnlock()
	if ok && registered == v {
		return
	}
	if closer, ok := v.(io.Closer); ok {
		closer.Close()
	}
}
