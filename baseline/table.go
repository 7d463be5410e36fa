// Package baseline holds the static default-item ordering: a per-partition
// mapping from item identity to a pre-spaced integer key.
//
// Baseline keys are spaced by Gap so later insertions can be interleaved
// without renumbering. The table is conceptually immutable for the process
// lifetime; the engine's catalog cache refreshes it on a TTL so new default
// items eventually pick up their keys without a restart.
package baseline

import (
	"context"
	"fmt"
	"sort"

	"github.com/hupe1980/catview/blobstore"
	"github.com/hupe1980/catview/codec"
	"github.com/hupe1980/catview/model"
)

// Gap is the spacing between consecutive baseline keys.
const Gap model.OrderKey = 100

// Entry assigns a baseline order key to one default item within a partition.
type Entry struct {
	Partition model.Partition `json:"partition"`
	ItemID    model.ItemID    `json:"item_id"`
	Order     model.OrderKey  `json:"order"`
}

// Table is an immutable lookup from (partition, item) to baseline order key.
type Table struct {
	entries map[model.Partition]map[model.ItemID]model.OrderKey
}

// New builds a table from entries. Duplicate (partition, item) pairs and
// non-positive keys are configuration errors.
func New(entries []Entry) (*Table, error) {
	t := &Table{entries: make(map[model.Partition]map[model.ItemID]model.OrderKey)}
	for _, e := range entries {
		if e.Order <= 0 {
			return nil, fmt.Errorf("baseline: non-positive order %d for %q/%q", e.Order, e.Partition, e.ItemID)
		}
		p := t.entries[e.Partition]
		if p == nil {
			p = make(map[model.ItemID]model.OrderKey)
			t.entries[e.Partition] = p
		}
		if _, ok := p[e.ItemID]; ok {
			return nil, fmt.Errorf("baseline: duplicate entry for %q/%q", e.Partition, e.ItemID)
		}
		p[e.ItemID] = e.Order
	}
	return t, nil
}

// Seed builds a table by assigning gap-spaced keys to the given item IDs in
// order, starting at Gap. It is the typical way to bootstrap a partition.
func Seed(partition model.Partition, ids []model.ItemID) *Table {
	entries := make([]Entry, len(ids))
	for i, id := range ids {
		entries[i] = Entry{
			Partition: partition,
			ItemID:    id,
			Order:     Gap * model.OrderKey(i+1),
		}
	}
	t, err := New(entries)
	if err != nil {
		// Seed assigns distinct positive keys; New cannot fail.
		panic(err)
	}
	return t
}

// Lookup returns the baseline key for an item, or false when the table has
// no entry (a configuration gap; the engine logs it and sorts the item last).
func (t *Table) Lookup(partition model.Partition, id model.ItemID) (model.OrderKey, bool) {
	k, ok := t.entries[partition][id]
	return k, ok
}

// Len returns the total number of entries across all partitions.
func (t *Table) Len() int {
	n := 0
	for _, p := range t.entries {
		n += len(p)
	}
	return n
}

// Entries returns all entries sorted by partition, then order, then item ID.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, t.Len())
	for partition, items := range t.entries {
		for id, order := range items {
			out = append(out, Entry{Partition: partition, ItemID: id, Order: order})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Partition != out[j].Partition {
			return out[i].Partition < out[j].Partition
		}
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out
}

// tableRecord is the self-describing persisted form of a table.
type tableRecord struct {
	Codec   string  `json:"codec"`
	Entries []Entry `json:"entries"`
}

// Load reads a table from a blob written by Save.
func Load(ctx context.Context, store blobstore.BlobStore, name string) (*Table, error) {
	data, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		return nil, fmt.Errorf("baseline: read %q: %w", name, err)
	}

	// The header codec is JSON regardless of payload codec; with a single
	// built-in codec the two coincide, but the name is validated anyway so a
	// future codec change fails loudly on old readers.
	var rec tableRecord
	if err := (codec.JSON{}).Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("baseline: decode %q: %w", name, err)
	}
	if _, ok := codec.ByName(rec.Codec); !ok {
		return nil, fmt.Errorf("baseline: %q written with unknown codec %q", name, rec.Codec)
	}

	return New(rec.Entries)
}

// Save writes the table to the blob store in a self-describing format.
func Save(ctx context.Context, store blobstore.BlobStore, name string, t *Table) error {
	rec := tableRecord{
		Codec:   codec.Default.Name(),
		Entries: t.Entries(),
	}
	data, err := codec.Default.Marshal(rec)
	if err != nil {
		return fmt.Errorf("baseline: encode %q: %w", name, err)
	}
	if err := store.Put(ctx, name, data); err != nil {
		return fmt.Errorf("baseline: write %q: %w", name, err)
	}
	return nil
}
