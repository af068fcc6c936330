package credential

import (
	"context"
	"maps"
	"sync"
)

// Edit is a batch of changes to a namespace. Set and Remove are applied
// together or not at all.
type Edit struct {
	Set    map[string]string
	Remove []string
}

// Empty reports whether the edit changes nothing.
func (e Edit) Empty() bool {
	return len(e.Set) == 0 && len(e.Remove) == 0
}

// applyTo returns a copy of values with the edit applied.
func (e Edit) applyTo(values map[string]string) map[string]string {
	next := make(map[string]string, len(values)+len(e.Set))
	maps.Copy(next, values)
	for _, k := range e.Remove {
		delete(next, k)
	}
	maps.Copy(next, e.Set)
	return next
}

// Store persists a string key-value namespace.
type Store interface {
	// Load returns every key in the namespace. A namespace that was never
	// written loads as an empty map.
	Load(ctx context.Context) (map[string]string, error)

	// Apply commits an edit atomically.
	Apply(ctx context.Context, edit Edit) error
}

// MemoryStore keeps the namespace in memory.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore creates a MemoryStore seeded with values (which may be nil).
func NewMemoryStore(values map[string]string) *MemoryStore {
	s := &MemoryStore{values: make(map[string]string, len(values))}
	maps.Copy(s.values, values)
	return s
}

// Load returns a copy of the stored values.
func (s *MemoryStore) Load(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.values), nil
}

// Apply applies the edit.
func (s *MemoryStore) Apply(_ context.Context, edit Edit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = edit.applyTo(s.values)
	return nil
}
