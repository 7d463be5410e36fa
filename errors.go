package catview

import (
	"errors"
	"fmt"

	"github.com/hupe1980/catview/engine"
	"github.com/hupe1980/catview/override"
)

var (
	// ErrConcurrentModification is returned when a reorder lost a race with
	// another session for the same owner, either through the expected-order
	// precondition or a conditional write at the store. The caller retries
	// from a fresh View.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrSnapshotsDisabled is returned by snapshot operations when New was
	// not configured with WithSnapshotStore.
	ErrSnapshotsDisabled = errors.New("no snapshot store configured")
)

// Validation sentinels, matched with errors.Is.
var (
	// ErrUnknownItem marks a sequence or toggle naming an item that does
	// not exist, is in another partition, or belongs to another owner.
	ErrUnknownItem = engine.ErrUnknownItem

	// ErrStaleSequence marks a reorder sequence that is not a permutation
	// of the current view.
	ErrStaleSequence = engine.ErrStaleSequence
)

// Error kinds callers inspect with errors.As.
type (
	// ValidationError reports a rejected input; always recoverable by
	// resubmitting a corrected sequence.
	ValidationError = engine.ValidationError

	// PartialWriteError reports a reorder whose writes partially failed,
	// naming the failed item ids so just those can be retried.
	PartialWriteError = engine.PartialWriteError

	// StorageInvariantError reports persisted state the engine cannot
	// repair. Not retryable.
	StorageInvariantError = engine.StorageInvariantError
)

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Concurrency unification: the engine-level precondition and the
	// store-level conditional write surface as one sentinel.
	if errors.Is(err, engine.ErrConcurrentModification) || errors.Is(err, override.ErrConcurrentModification) {
		return fmt.Errorf("%w: %w", ErrConcurrentModification, err)
	}

	return err
}
