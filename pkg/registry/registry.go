package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Registry manages the component types known to an editor.
// Hosts that receive component names over the wire (HTTP, MCP, scripts) resolve
// them here.
type Registry struct {
	mu         sync.RWMutex
	components map[string]domain.ComponentType
}

// NewRegistry creates a registry holding the built-in Canvas component.
func NewRegistry() *Registry {
	r := &Registry{
		components: make(map[string]domain.ComponentType),
	}
	r.Register(domain.CanvasComponent)
	return r
}

// Register adds a component type to the registry.
// If a component with the same name exists, it is overwritten.
func (r *Registry) Register(t domain.ComponentType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[t.Name] = t
}

// Lookup resolves a component type by name.
// Returns an error if the component is not registered.
func (r *Registry) Lookup(name string) (domain.ComponentType, error) {
	r.mu.RLock()
	t, ok := r.components[name]
	r.mu.RUnlock()

	if !ok {
		return domain.ComponentType{}, fmt.Errorf("component not found: %s", name)
	}
	return t, nil
}

// Names lists the registered component names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
