package override

import (
	"context"
	"sort"
	"sync"

	"github.com/hupe1980/catview/model"
)

// MemoryStore is an in-memory Store implementation using nested maps keyed
// by owner and item. Suitable for tests and single-process deployments.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[model.OwnerID]map[model.ItemID]model.Override
}

// NewMemoryStore creates an empty in-memory override store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[model.OwnerID]map[model.ItemID]model.Override)}
}

// List returns all override rows for an owner, sorted by item ID.
func (m *MemoryStore) List(_ context.Context, owner model.OwnerID) ([]model.Override, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Override, 0, len(m.rows[owner]))
	for _, rec := range m.rows[owner] {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

// Upsert applies a patch to the (owner, itemID) row, creating it if absent.
func (m *MemoryStore) Upsert(_ context.Context, owner model.OwnerID, itemID model.ItemID, patch Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.apply(owner, itemID, patch)
	return nil
}

// BulkUpsert applies patches to many rows. The in-memory implementation
// cannot partially fail; every record reports success.
func (m *MemoryStore) BulkUpsert(_ context.Context, owner model.OwnerID, patches []ItemPatch) ([]BulkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	results := make([]BulkResult, len(patches))
	for i, p := range patches {
		m.apply(owner, p.ItemID, p.Patch)
		results[i] = BulkResult{ItemID: p.ItemID}
	}
	return results, nil
}

// Len returns the total number of rows across all owners.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, rows := range m.rows {
		n += len(rows)
	}
	return n
}

func (m *MemoryStore) apply(owner model.OwnerID, itemID model.ItemID, patch Patch) {
	rows := m.rows[owner]
	if rows == nil {
		rows = make(map[model.ItemID]model.Override)
		m.rows[owner] = rows
	}

	rec, ok := rows[itemID]
	if !ok {
		rec = model.Override{Owner: owner, ItemID: itemID}
	}
	if patch.Hidden != nil {
		rec.Hidden = *patch.Hidden
	}
	if patch.Order != nil {
		rec.Order = *patch.Order
		rec.HasOrder = true
	}
	rows[itemID] = rec
}
