package namespace

import (
	"context"
	"sync"
)

var _ Repository = (*MemoryRepository)(nil)

type record struct {
	id    Identity
	props map[string]string
}

// MemoryRepository is a thread-safe in-memory Repository.
type MemoryRepository struct {
	mu   sync.RWMutex
	data map[string]*record // keyed by Identity.Encode
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: make(map[string]*record)}
}

func (r *MemoryRepository) Exists(_ context.Context, id Identity) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.data[id.Encode()]
	return ok, nil
}

func (r *MemoryRepository) Insert(_ context.Context, id Identity, props map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := id.Encode()
	if _, ok := r.data[key]; ok {
		return ConflictError(id)
	}
	r.data[key] = &record{id: id, props: cloneProperties(props)}
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id Identity) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.data[id.Encode()]
	if !ok {
		return nil, NotFoundError(id)
	}
	return cloneProperties(rec.props), nil
}

func (r *MemoryRepository) Remove(_ context.Context, id Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := id.Encode()
	if _, ok := r.data[key]; !ok {
		return NotFoundError(id)
	}
	delete(r.data, key)
	return nil
}

func (r *MemoryRepository) ListChildren(_ context.Context, parent *Identity) ([]Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if parent == nil {
		var ids []Identity
		for _, rec := range r.data {
			if rec.id.Len() == 1 {
				ids = append(ids, rec.id)
			}
		}
		return ids, nil
	}

	if _, ok := r.data[parent.Encode()]; !ok {
		return nil, NotFoundError(*parent)
	}

	var ids []Identity
	for _, rec := range r.data {
		if rec.id.IsDirectChildOf(*parent) {
			ids = append(ids, rec.id)
		}
	}
	return ids, nil
}

func (r *MemoryRepository) UpdateProperties(_ context.Context, id Identity, removals []string, updates []Property) (PropertiesDiff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data[id.Encode()]
	if !ok {
		return PropertiesDiff{}, NotFoundError(id)
	}
	return ReconcileProperties(rec.props, removals, updates), nil
}

// Len returns the number of namespaces in the universe.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}
