package source

import (
	"sync"

	"github.com/use-agent/pricescope/models"
)

// Registry maps SourceIDs to their adapters. The set is fixed at startup;
// the lock only guards against a late registration racing a lookup.
type Registry struct {
	mu       sync.RWMutex
	adapters map[models.SourceID]Adapter
	order    []models.SourceID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[models.SourceID]Adapter)}
}

// Register adds an adapter. Returns false if the ID is already taken.
func (r *Registry) Register(a Adapter) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[a.ID()]; exists {
		return false
	}
	r.adapters[a.ID()] = a
	r.order = append(r.order, a.ID())
	return true
}

// Get returns the adapter for an ID, or nil.
func (r *Registry) Get(id models.SourceID) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[id]
}

// All returns every registered adapter in registration order.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.adapters[id])
	}
	return out
}

// IDs returns the registered source IDs in registration order.
func (r *Registry) IDs() []models.SourceID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.SourceID, len(r.order))
	copy(out, r.order)
	return out
}
