package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/hupe1980/catview/model"
)

// MemoryStore is an in-memory Store implementation. It is the reference
// implementation for tests and small deployments where the catalog fits in
// memory and is managed by the embedding process.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[model.ItemID]model.Item
}

// NewMemoryStore creates an empty in-memory catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[model.ItemID]model.Item)}
}

// Put inserts or replaces an item. This is the CRUD collaborator's side of
// the boundary; the engine never calls it.
func (m *MemoryStore) Put(item model.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
}

// Remove deletes an item if present.
func (m *MemoryStore) Remove(id model.ItemID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
}

// ListDefaults returns all default items for a partition, sorted by ID for
// deterministic iteration.
func (m *MemoryStore) ListDefaults(_ context.Context, partition model.Partition) ([]model.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Item
	for _, it := range m.items {
		if it.Kind == model.KindDefault && it.Partition == partition {
			out = append(out, it)
		}
	}
	sortItems(out)
	return out, nil
}

// ListOwned returns the custom items owned by owner within a partition,
// sorted by ID.
func (m *MemoryStore) ListOwned(_ context.Context, owner model.OwnerID, partition model.Partition) ([]model.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Item
	for _, it := range m.items {
		if it.Kind == model.KindCustom && it.Owner == owner && it.Partition == partition {
			out = append(out, it)
		}
	}
	sortItems(out)
	return out, nil
}

// Get resolves an item by ID.
func (m *MemoryStore) Get(_ context.Context, id model.ItemID) (model.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, ok := m.items[id]
	if !ok {
		return model.Item{}, ErrNotFound
	}
	return it, nil
}

func sortItems(items []model.Item) {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}
