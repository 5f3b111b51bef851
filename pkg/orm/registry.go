package orm

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the models known to a process, keyed by model name.
// Models are registered once at boot and read concurrently afterwards.
type Registry struct {
	mu      sync.RWMutex
	models  map[string]*Model
	byTable map[string]*Model
}

// NewRegistry returns an empty registry, optionally seeded with models.
func NewRegistry(models ...*Model) (*Registry, error) {
	r := &Registry{
		models:  make(map[string]*Model),
		byTable: make(map[string]*Model),
	}
	for _, m := range models {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a model. Model names and table names must be unique.
func (r *Registry) Register(m *Model) error {
	if m == nil {
		return fmt.Errorf("cannot register nil model")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.models[m.name]; ok {
		return fmt.Errorf("model %s already registered", m.name)
	}
	if other, ok := r.byTable[m.table]; ok {
		return fmt.Errorf("model %s: table %s already used by model %s", m.name, m.table, other.name)
	}
	r.models[m.name] = m
	r.byTable[m.table] = m
	return nil
}

// Get looks a model up by model name, falling back to table name.
func (r *Registry) Get(name string) (*Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.models[name]; ok {
		return m, true
	}
	m, ok := r.byTable[name]
	return m, ok
}

// Models returns all registered models sorted by name.
func (r *Registry) Models() []*Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Model, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}
