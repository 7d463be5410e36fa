package keyalloc

import "github.com/hupe1980/catview/model"

// Respace computes n fresh keys for a contiguous window of items, bounded by
// the keys of the window's outside neighbors. hasLo/hasHi report whether such
// a neighbor exists; an unbounded side lets Respace renumber freely.
//
// The result is strictly increasing, strictly inside (lo, hi) where bounded,
// and spaced by RespaceGap when the span allows it. When the bounded span is
// too narrow to hold n distinct integers, Respace returns ErrCollision and
// the caller must widen the window.
func Respace(n int, lo, hi model.OrderKey, hasLo, hasHi bool) ([]model.OrderKey, error) {
	if n <= 0 {
		return nil, nil
	}

	keys := make([]model.OrderKey, n)

	switch {
	case !hasLo && !hasHi:
		for i := range keys {
			keys[i] = Seed + model.OrderKey(i)*RespaceGap
		}
		return keys, nil

	case hasLo && !hasHi:
		for i := range keys {
			keys[i] = lo + model.OrderKey(i+1)*RespaceGap
		}
		if keys[n-1] >= Ceiling {
			return nil, ErrCollision
		}
		return keys, nil

	case !hasLo && hasHi:
		// Prefer full gaps below hi; fall back to an even split of
		// (Floor, hi) when hi is too close to the floor.
		start := hi - model.OrderKey(n)*RespaceGap
		if start > Floor {
			for i := range keys {
				keys[i] = start + model.OrderKey(i)*RespaceGap
			}
			return keys, nil
		}
		return split(n, Floor, hi)

	default:
		return split(n, lo, hi)
	}
}

// split distributes n keys evenly across the open interval (lo, hi), capping
// the step at RespaceGap so small windows do not sprawl.
func split(n int, lo, hi model.OrderKey) ([]model.OrderKey, error) {
	span := hi - lo
	if span <= model.OrderKey(n) {
		return nil, ErrCollision
	}

	step := span / model.OrderKey(n+1)
	if step > RespaceGap {
		step = RespaceGap
	}

	keys := make([]model.OrderKey, n)
	for i := range keys {
		keys[i] = lo + model.OrderKey(i+1)*step
	}
	return keys, nil
}
