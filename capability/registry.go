package capability

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps capability names to injected Backend implementations.
// Availability is a registration fact, not a runtime probe: a capability is
// available iff a backend is registered under its name. Safe for concurrent
// use.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds (or replaces) the backend under its own name. A nil backend
// or empty name is a programming error.
func (r *Registry) Register(b Backend) error {
	if b == nil {
		return fmt.Errorf("capability: cannot register nil backend")
	}
	if b.Name() == "" {
		return fmt.Errorf("capability: backend has empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[b.Name()] = b
	return nil
}

// Deregister removes the backend for name, making the capability unavailable.
func (r *Registry) Deregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.backends, name)
}

// Lookup returns the backend registered under name.
func (r *Registry) Lookup(name string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	return b, ok
}

// Available reports whether a backend is registered under name.
func (r *Registry) Available(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names returns the registered capability names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
