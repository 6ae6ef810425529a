package authstack

import (
	"fmt"
	"sync"
)

// A Source resolves module type names to factories. It is the loading-context
// abstraction behind the registry: a [Registry] is itself a Source, and
// policies may prefer an alternative Source for their module group.
type Source interface {
	Lookup(typeName string) (ModuleFactory, bool)
}

// A Locator finds the preferred [Source] for a named module group, or nil if
// it knows none. It is an external collaborator; plugin hosts implement it to
// route groups of modules to their own factories.
type Locator interface {
	Locate(group string) Source
}

// A Registry maps module type names to factories and memoizes resolutions,
// so a type resolved once through a locator or fallback source is not looked
// up again. It is safe for concurrent use and is typically shared
// process-wide across all authorization contexts.
type Registry struct {
	mu        sync.Mutex
	factories map[string]ModuleFactory
	resolved  map[string]ModuleFactory
}

func NewRegistry() *Registry {
	return &Registry{
		factories: map[string]ModuleFactory{},
		resolved:  map[string]ModuleFactory{},
	}
}

// DefaultRegistry is the process-wide registry; built-in modules register
// themselves here.
var DefaultRegistry = NewRegistry()

// Register binds a module type name to its factory. Later registrations for
// the same name replace earlier ones and invalidate the cached resolution.
func (r *Registry) Register(typeName string, factory ModuleFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[typeName] = factory
	delete(r.resolved, typeName)
}

// Lookup implements [Source] over the registered factories only; memoized
// resolutions from other sources are not exposed.
func (r *Registry) Lookup(typeName string) (ModuleFactory, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	factory, ok := r.factories[typeName]
	return factory, ok
}

// resolve finds the factory for typeName, trying the preferred source first,
// then the registry's own table, then [DefaultRegistry]. The first hit is
// cached, so subsequent calls for the same name do not consult any source
// again.
func (r *Registry) resolve(typeName string, preferred Source) (ModuleFactory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if factory, ok := r.resolved[typeName]; ok {
		return factory, nil
	}

	var factory ModuleFactory
	if preferred != nil {
		if f, ok := preferred.Lookup(typeName); ok {
			factory = f
		}
	}
	if factory == nil {
		if f, ok := r.factories[typeName]; ok {
			factory = f
		}
	}
	if factory == nil && r != DefaultRegistry {
		if f, ok := DefaultRegistry.Lookup(typeName); ok {
			factory = f
		}
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: %q", ErrModuleNotFound, typeName)
	}

	r.resolved[typeName] = factory
	return factory, nil
}
