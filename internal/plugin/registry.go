package plugin

import (
	"fmt"
	"sort"
	"sync"
)

// Factory constructs a fresh plugin declaration. A new declaration per load
// keeps plugin state from leaking between pipeline instances.
type Factory func() *Plugin

// Registry maps plugin names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory. Duplicate names are an error.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("cannot register plugin with empty name")
	}
	if f == nil {
		return fmt.Errorf("cannot register nil factory for plugin %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("plugin %q already registered", name)
	}
	r.factories[name] = f
	return nil
}

// Lookup returns the factory for name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Names returns the registered plugin names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var (
	builtinRegistry  = NewRegistry()
	externalRegistry = NewRegistry()
)

// RegisterBuiltin registers a plugin shipped with sitewright. Built-in
// plugin packages call this from init().
func RegisterBuiltin(name string, f Factory) {
	if err := builtinRegistry.Register(name, f); err != nil {
		panic(err)
	}
}

// RegisterExternal registers an externally installed plugin. Duplicates are
// reported to the caller instead of panicking.
func RegisterExternal(name string, f Factory) error {
	return externalRegistry.Register(name, f)
}

// Builtins returns the registry of built-in plugins.
func Builtins() *Registry { return builtinRegistry }

// Resolver resolves configured plugin names through ordered registry tiers:
// project-supplied factories first, then built-ins, then externally
// installed plugins. First tier that knows the name wins.
type Resolver struct {
	tiers []*Registry
}

// NewResolver builds a resolver. project may be nil.
func NewResolver(project *Registry) *Resolver {
	tiers := make([]*Registry, 0, 3)
	if project != nil {
		tiers = append(tiers, project)
	}
	tiers = append(tiers, builtinRegistry, externalRegistry)
	return &Resolver{tiers: tiers}
}

// Resolve returns the factory for a plugin name. An unresolvable name is a
// fatal configuration error for the caller.
func (r *Resolver) Resolve(name string) (Factory, error) {
	for _, tier := range r.tiers {
		if f, ok := tier.Lookup(name); ok {
			return f, nil
		}
	}
	return nil, fmt.Errorf("plugin not found: %q (not in project, built-in, or installed registries)", name)
}
