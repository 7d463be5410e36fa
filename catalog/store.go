// Package catalog defines the read boundary to the canonical item catalog.
//
// Catalog items are created and deleted by an external CRUD layer; the
// ordering engine only lists and resolves them. Implementations must be
// read-consistent within a single request.
package catalog

import (
	"context"
	"errors"

	"github.com/hupe1980/catview/model"
)

// ErrNotFound is returned when an item ID does not resolve to a catalog item.
var ErrNotFound = errors.New("catalog: item not found")

// Store is the catalog read contract consumed by the engine.
type Store interface {
	// ListDefaults returns all shared default items for a partition.
	ListDefaults(ctx context.Context, partition model.Partition) ([]model.Item, error)

	// ListOwned returns the custom items owned by owner within a partition.
	ListOwned(ctx context.Context, owner model.OwnerID, partition model.Partition) ([]model.Item, error)

	// Get resolves an item by ID. Returns ErrNotFound if the item does not
	// exist.
	Get(ctx context.Context, id model.ItemID) (model.Item, error)
}
