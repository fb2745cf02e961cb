package bootstrap

import (
	"sort"
	"sync"
)

// Registry holds named service and controller instances shared between
// features.
type Registry struct {
	mu    sync.RWMutex
	items map[string]any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]any)}
}

// Register stores v under name, replacing any previous instance.
func (r *Registry) Register(name string, v any) {
	r.mu.Lock()
	r.items[name] = v
	r.mu.Unlock()
}

// Unregister removes name. Idempotent.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	delete(r.items, name)
	r.mu.Unlock()
}

// Lookup returns the instance registered under name.
func (r *Registry) Lookup(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[name]
	return v, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}
