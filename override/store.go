// Package override defines the sparse per-(owner, item) delta store.
//
// A row exists only when an owner's effective state diverges from baseline:
// the owner hid an item or moved it. Absence of a row means "use baseline,
// not hidden" — total storage is proportional to the number of diverged
// (owner, item) pairs, never to owners × items.
package override

import (
	"context"
	"errors"

	"github.com/hupe1980/catview/model"
)

// ErrConcurrentModification is returned by stores that support conditional
// writes when the precondition no longer holds. Callers retry from a fresh
// view.
var ErrConcurrentModification = errors.New("override: concurrent modification detected")

// Patch is a partial update to an override row. Nil fields are left
// untouched; on a missing row the untouched fields take their defaults
// (not hidden, no custom order).
type Patch struct {
	Hidden *bool
	Order  *model.OrderKey
}

// ItemPatch pairs a patch with its target item for bulk operations.
type ItemPatch struct {
	ItemID model.ItemID
	Patch  Patch
}

// BulkResult reports the outcome of one record in a bulk upsert.
type BulkResult struct {
	ItemID model.ItemID
	Err    error
}

// Store is the override persistence contract consumed by the engine.
//
// Implementations must enforce uniqueness on (owner, itemID): an upsert
// creates the row if missing and updates it in place otherwise. Single-row
// upserts are the unit of atomicity; the engine accepts last-write-wins at
// the row level.
type Store interface {
	// List returns all override rows for an owner in a single bulk read.
	List(ctx context.Context, owner model.OwnerID) ([]model.Override, error)

	// Upsert applies a patch to the (owner, itemID) row, creating it if
	// absent.
	Upsert(ctx context.Context, owner model.OwnerID, itemID model.ItemID, patch Patch) error

	// BulkUpsert applies patches to many rows and reports per-record
	// results. The returned slice has one entry per input patch, in order;
	// the error is reserved for failures that prevented the bulk operation
	// from being attempted at all.
	BulkUpsert(ctx context.Context, owner model.OwnerID, patches []ItemPatch) ([]BulkResult, error)
}

// Bool returns a pointer to b, for building patches.
func Bool(b bool) *bool { return &b }

// Order returns a pointer to k, for building patches.
func Order(k model.OrderKey) *model.OrderKey { return &k }
