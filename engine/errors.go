package engine

import (
	"errors"
	"fmt"

	"github.com/hupe1980/catview/model"
)

// Validation sentinels. Both are recoverable by the caller resubmitting a
// corrected sequence and are never retried automatically.
var (
	// ErrUnknownItem is returned when a sequence names an item that does not
	// exist or belongs to a different partition or owner.
	ErrUnknownItem = errors.New("unknown or mismatched item")

	// ErrStaleSequence is returned when a sequence is not a permutation of
	// the current merged view: ids were dropped, injected or duplicated.
	ErrStaleSequence = errors.New("stale or incomplete sequence")
)

// ErrConcurrentModification is returned when a reorder carries an
// expected-order precondition that no longer matches the current view.
// The caller retries from a fresh view.
var ErrConcurrentModification = errors.New("view changed since it was read")

// ValidationError reports a rejected input. It wraps one of the validation
// sentinels; use errors.Is to distinguish them.
type ValidationError struct {
	Op     string
	ItemID model.ItemID
	cause  error
}

func (e *ValidationError) Error() string {
	if e.ItemID != "" {
		return fmt.Sprintf("%s: %s: %q", e.Op, e.cause, e.ItemID)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.cause)
}

func (e *ValidationError) Unwrap() error { return e.cause }

// PartialWriteError reports a reorder whose displaced-item writes partially
// failed. Already-written items are durably updated; the caller retries the
// reorder, which will touch only the still-misplaced rows.
type PartialWriteError struct {
	Succeeded []model.ItemID
	Failed    []model.ItemID
	cause     error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("reorder: %d of %d override writes failed (failed items: %v): %v",
		len(e.Failed), len(e.Succeeded)+len(e.Failed), e.Failed, e.cause)
}

func (e *PartialWriteError) Unwrap() error { return e.cause }

// StorageInvariantError indicates persisted state the engine cannot repair,
// e.g. a key range that cannot be rebalanced. It is not retryable.
type StorageInvariantError struct {
	Detail string
}

func (e *StorageInvariantError) Error() string {
	return "storage invariant violated: " + e.Detail
}
