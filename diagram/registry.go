package diagram

import (
	"sync"

	"github.com/google/uuid"
)

// Registry lets a host keep several diagrams alive and find them again
// by id. Diagrams themselves are not safe for concurrent use; the
// registry is.
type Registry struct {
	mu       sync.RWMutex
	diagrams map[uuid.UUID]*Diagram
}

func NewRegistry() *Registry {
	return &Registry{diagrams: make(map[uuid.UUID]*Diagram)}
}

func (r *Registry) Register(d *Diagram) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diagrams[d.id] = d
	return d.id
}

func (r *Registry) Lookup(id uuid.UUID) (*Diagram, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.diagrams[id]
	return d, ok
}

// Unregister drops the diagram and closes it.
func (r *Registry) Unregister(id uuid.UUID) bool {
	r.mu.Lock()
	d, ok := r.diagrams[id]
	delete(r.diagrams, id)
	r.mu.Unlock()
	if ok {
		d.Close()
	}
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.diagrams)
}
