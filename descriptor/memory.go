package descriptor

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore is an in-memory Store.
// Thread-safe for concurrent reads and writes.
type MemoryStore struct {
	mu      sync.RWMutex
	vectors map[ID][]float64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		vectors: make(map[ID][]float64),
	}
}

// GetVector implements Store.
func (m *MemoryStore) GetVector(_ context.Context, id ID) ([]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.vectors[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return v, nil
}

// GetMany implements BatchGetter with a single lock acquisition.
func (m *MemoryStore) GetMany(_ context.Context, ids []ID) ([][]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([][]float64, len(ids))
	for i, id := range ids {
		v, ok := m.vectors[id]
		if !ok {
			return nil, &NotFoundError{ID: id}
		}
		out[i] = v
	}
	return out, nil
}

// AllIdentifiers implements Store.
func (m *MemoryStore) AllIdentifiers(_ context.Context) ([]ID, error) {
	m.mu.RLock()
	ids := make([]ID, 0, len(m.vectors))
	for id := range m.vectors {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	slices.Sort(ids)
	return ids, nil
}

// AddMany implements Writer. Vectors are copied to prevent external mutation.
func (m *MemoryStore) AddMany(_ context.Context, descriptors []Descriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range descriptors {
		m.vectors[d.ID] = slices.Clone(d.Vector)
	}
	return nil
}

// Delete removes an identifier. Missing identifiers are ignored.
func (m *MemoryStore) Delete(_ context.Context, id ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.vectors, id)
	return nil
}

// Len returns the number of stored descriptors.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}
