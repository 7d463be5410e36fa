package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hupe1980/catview/catalog"
	"github.com/hupe1980/catview/keyalloc"
	"github.com/hupe1980/catview/model"
	"github.com/hupe1980/catview/override"
)

type reorderOptions struct {
	expected []model.ItemID
}

// ReorderOption configures a single Reorder call.
type ReorderOption func(*reorderOptions)

// WithExpectedOrder attaches the id sequence the caller's view was based on
// as an optimistic precondition. If the current merged order no longer
// matches, Reorder fails with ErrConcurrentModification instead of applying
// the diff against a state the caller never saw; the caller retries from a
// fresh View.
//
// Without this option, concurrent reorders for the same owner resolve by
// last write wins at the row level.
func WithExpectedOrder(seq []model.ItemID) ReorderOption {
	return func(o *reorderOptions) {
		o.expected = seq
	}
}

// Reorder replaces the owner's ordering for a partition with sequence.
//
// sequence must be a permutation of the current merged view including hidden
// items (hidden items still occupy order slots). Only items whose relative
// position actually changed receive new order keys and are written; a
// sequence equal to the current order is a successful no-op with zero
// writes. Validation failures abort before any write.
func (e *Engine) Reorder(ctx context.Context, owner model.OwnerID, partition model.Partition, sequence []model.ItemID, optFns ...ReorderOption) error {
	var o reorderOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	start := time.Now()

	written, err := e.reorder(ctx, owner, partition, sequence, o)

	e.metrics.RecordReorder(written, time.Since(start), err)
	e.logger.LogReorder(ctx, owner, written, err)

	return err
}

func (e *Engine) reorder(ctx context.Context, owner model.OwnerID, partition model.Partition, sequence []model.ItemID, o reorderOptions) (int, error) {
	current, err := e.buildView(ctx, owner, partition, true)
	if err != nil {
		return 0, err
	}

	currentIDs := make([]model.ItemID, len(current))
	keyByID := make(map[model.ItemID]model.OrderKey, len(current))
	for i, entry := range current {
		currentIDs[i] = entry.Item.ID
		keyByID[entry.Item.ID] = entry.Order
	}

	if err := e.validateSequence(ctx, partition, sequence, keyByID); err != nil {
		return 0, err
	}

	if o.expected != nil && !idsEqual(o.expected, currentIDs) {
		return 0, ErrConcurrentModification
	}

	if idsEqual(sequence, currentIDs) {
		return 0, nil
	}

	keys, displaced, err := e.allocateKeys(ctx, owner, currentIDs, sequence, keyByID)
	if err != nil {
		return 0, err
	}

	patches := make([]override.ItemPatch, 0, len(sequence))
	for i, id := range sequence {
		if !displaced[i] || keys[i] == keyByID[id] {
			continue
		}
		patches = append(patches, override.ItemPatch{
			ItemID: id,
			Patch:  override.Patch{Order: override.Order(keys[i])},
		})
	}
	if len(patches) == 0 {
		return 0, nil
	}

	results, err := e.overrides.BulkUpsert(ctx, owner, patches)
	if err != nil {
		return 0, fmt.Errorf("persist reorder: %w", err)
	}

	var (
		succeeded []model.ItemID
		failed    []model.ItemID
		cause     error
	)
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r.ItemID)
			if cause == nil {
				cause = r.Err
			}
			continue
		}
		succeeded = append(succeeded, r.ItemID)
	}
	if len(failed) > 0 {
		return len(succeeded), &PartialWriteError{
			Succeeded: succeeded,
			Failed:    failed,
			cause:     cause,
		}
	}

	return len(succeeded), nil
}

// validateSequence enforces the two reorder preconditions: every id resolves
// to an item of the right partition visible to this owner, and the id set is
// exactly the current merged set.
func (e *Engine) validateSequence(ctx context.Context, partition model.Partition, sequence []model.ItemID, keyByID map[model.ItemID]model.OrderKey) error {
	seen := make(map[model.ItemID]struct{}, len(sequence))
	for _, id := range sequence {
		if _, dup := seen[id]; dup {
			return &ValidationError{Op: "reorder", ItemID: id, cause: ErrStaleSequence}
		}
		seen[id] = struct{}{}

		if _, ok := keyByID[id]; ok {
			continue
		}

		// Not part of the current view: distinguish a nonexistent or
		// foreign item from a sequence computed against a stale view.
		it, err := e.catalog.Get(ctx, id)
		if errors.Is(err, catalog.ErrNotFound) {
			return &ValidationError{Op: "reorder", ItemID: id, cause: ErrUnknownItem}
		}
		if err != nil {
			return fmt.Errorf("resolve %q: %w", id, err)
		}
		if it.Partition != partition || !it.IsDefault() {
			return &ValidationError{Op: "reorder", ItemID: id, cause: ErrUnknownItem}
		}
		// Right partition, shared item, yet absent from the view the engine
		// just computed: the caller raced a catalog change.
		return &ValidationError{Op: "reorder", ItemID: id, cause: ErrStaleSequence}
	}

	if len(sequence) != len(keyByID) {
		return &ValidationError{Op: "reorder", cause: ErrStaleSequence}
	}

	return nil
}

// allocateKeys computes the new effective key for every position of sequence.
// Non-displaced items keep their current keys; displaced items are assigned
// left to right so that each allocation sees its final left neighbor.
func (e *Engine) allocateKeys(ctx context.Context, owner model.OwnerID, currentIDs, sequence []model.ItemID, keyByID map[model.ItemID]model.OrderKey) ([]model.OrderKey, []bool, error) {
	displaced := displacedPositions(currentIDs, sequence)

	keys := make([]model.OrderKey, len(sequence))
	assigned := make([]bool, len(sequence))
	for i, id := range sequence {
		if !displaced[i] {
			keys[i] = keyByID[id]
			assigned[i] = true
		}
	}

	for i := 0; i < len(sequence); i++ {
		if assigned[i] {
			continue
		}

		next, hasNext := nextAssignedKey(i, keys, assigned)

		var pos keyalloc.Position
		switch {
		case i == 0 && !hasNext:
			pos = keyalloc.Initial()
		case i == 0:
			pos = keyalloc.Front(next)
		case !hasNext:
			pos = keyalloc.Back(keys[i-1])
		default:
			pos = keyalloc.Between(keys[i-1], next)
		}

		k, err := keyalloc.Allocate(pos)
		if errors.Is(err, keyalloc.ErrCollision) {
			if err := e.respaceWindow(ctx, owner, i, keys, displaced, assigned); err != nil {
				return nil, nil, err
			}
			continue // the rebalance assigned keys[i] and possibly more
		}
		if err != nil {
			return nil, nil, fmt.Errorf("allocate key: %w", err)
		}
		keys[i] = k
		assigned[i] = true
	}

	return keys, displaced, nil
}

// respaceWindow handles an integer-key collision at position i by respacing
// a local window of neighbors with fresh gapped keys. The window starts as
// the displaced run containing i and widens one kept neighbor at a time
// until the allocator can fit it; widened neighbors become displaced and are
// persisted with the rest. With both bounds gone the respace cannot fail, so
// a failure at full span indicates corrupted stored keys.
func (e *Engine) respaceWindow(ctx context.Context, owner model.OwnerID, i int, keys []model.OrderKey, displaced, assigned []bool) error {
	n := len(keys)

	a := i
	b := i
	for b+1 < n && !assigned[b+1] {
		b++
	}

	for {
		hasLo := a > 0
		hasHi := b+1 < n

		var lo, hi model.OrderKey
		if hasLo {
			lo = keys[a-1]
		}
		if hasHi {
			hi = keys[b+1]
		}

		ks, err := keyalloc.Respace(b-a+1, lo, hi, hasLo, hasHi)
		if err == nil {
			for w, k := range ks {
				keys[a+w] = k
				displaced[a+w] = true
				assigned[a+w] = true
			}
			window := b - a + 1
			e.metrics.RecordRebalance(window, nil)
			e.logger.LogRebalance(ctx, owner, window, nil)
			return nil
		}
		if !errors.Is(err, keyalloc.ErrCollision) {
			e.metrics.RecordRebalance(b-a+1, err)
			e.logger.LogRebalance(ctx, owner, b-a+1, err)
			return fmt.Errorf("rebalance: %w", err)
		}

		switch {
		case hasLo:
			a--
		case hasHi:
			b++
			for b+1 < n && !assigned[b+1] {
				b++
			}
		default:
			err := &StorageInvariantError{Detail: fmt.Sprintf("key space cannot hold %d items", n)}
			e.metrics.RecordRebalance(n, err)
			e.logger.LogRebalance(ctx, owner, n, err)
			return err
		}
	}
}

// nextAssignedKey returns the key of the nearest position after i that
// already has a final key, i.e. the displaced item's new right neighbor.
func nextAssignedKey(i int, keys []model.OrderKey, assigned []bool) (model.OrderKey, bool) {
	for j := i + 1; j < len(keys); j++ {
		if assigned[j] {
			return keys[j], true
		}
	}
	return 0, false
}

// displacedPositions reports, per position of sequence, whether the item's
// relative order changed. Items on a longest common subsequence of the two
// orders keep their keys; everything else moved and needs a new key.
func displacedPositions(currentIDs, sequence []model.ItemID) []bool {
	pos := make(map[model.ItemID]int, len(currentIDs))
	for i, id := range currentIDs {
		pos[id] = i
	}

	arr := make([]int, len(sequence))
	for i, id := range sequence {
		arr[i] = pos[id]
	}

	displaced := make([]bool, len(sequence))
	for i := range displaced {
		displaced[i] = true
	}
	for _, i := range longestIncreasingSubsequence(arr) {
		displaced[i] = false
	}

	return displaced
}

// longestIncreasingSubsequence returns the indices of one longest strictly
// increasing subsequence of arr, via patience sorting with parent links.
func longestIncreasingSubsequence(arr []int) []int {
	if len(arr) == 0 {
		return nil
	}

	tails := make([]int, 0, len(arr))
	parent := make([]int, len(arr))

	for i, v := range arr {
		j := sort.Search(len(tails), func(k int) bool { return arr[tails[k]] >= v })
		if j > 0 {
			parent[i] = tails[j-1]
		} else {
			parent[i] = -1
		}
		if j == len(tails) {
			tails = append(tails, i)
		} else {
			tails[j] = i
		}
	}

	res := make([]int, len(tails))
	k := tails[len(tails)-1]
	for x := len(tails) - 1; x >= 0; x-- {
		res[x] = k
		k = parent[k]
	}
	return res
}

func idsEqual(a, b []model.ItemID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
