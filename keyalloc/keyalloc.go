// Package keyalloc computes integer order keys for displaced items.
//
// The allocator is a pure function over the keys of an item's new neighbors.
// It has no knowledge of owners or stores, which keeps it independently
// testable: boundary gaps, zero-gap collisions and key-range exhaustion are
// all exercised without any storage in the loop.
//
// Interior insertions take the cheapest valid key (prev+1) instead of
// bisecting the gap. Repeated bisection of the same gap exhausts integer
// precision fastest; a one-slot insertion policy keeps the remaining gap
// usable for further insertions on the other side.
package keyalloc

import (
	"errors"

	"github.com/hupe1980/catview/model"
)

const (
	// Seed is the key assigned to the first item of an otherwise empty
	// sequence.
	Seed model.OrderKey = 50

	// Gap is the spacing used when allocating before the first or after the
	// last item.
	Gap model.OrderKey = 50

	// Floor is the hard lower bound for allocated keys. Front allocations
	// that would reach it trigger a rebalance instead.
	Floor model.OrderKey = 0

	// Ceiling is the hard upper bound for allocated keys. It sits far above
	// model.OrderAppend so append-positioned items can still be moved back.
	Ceiling model.OrderKey = 1 << 40

	// RespaceGap is the spacing restored by Respace. It matches the gap used
	// by baseline tables so a rebalanced window looks like freshly seeded
	// baseline keys.
	RespaceGap model.OrderKey = 100
)

// ErrCollision is returned when no integer key exists for the requested
// position. Callers respond by respacing a local window of neighbors and
// retrying; the error never reaches API callers unless rebalancing itself
// fails.
var ErrCollision = errors.New("keyalloc: no integer key available between neighbors")

type positionKind uint8

const (
	positionInitial positionKind = iota
	positionFront
	positionBack
	positionBetween
)

// Position describes where a key is needed, as a tagged variant:
// Initial (empty sequence), Front (before the first remaining neighbor),
// Back (after the last remaining neighbor) or Between two neighbors.
type Position struct {
	kind positionKind
	prev model.OrderKey
	next model.OrderKey
}

// Initial is the position of the only item in an empty sequence.
func Initial() Position {
	return Position{kind: positionInitial}
}

// Front is the position before next, with no left neighbor.
func Front(next model.OrderKey) Position {
	return Position{kind: positionFront, next: next}
}

// Back is the position after prev, with no right neighbor.
func Back(prev model.OrderKey) Position {
	return Position{kind: positionBack, prev: prev}
}

// Between is the interior position between prev and next. prev must be less
// than next; Allocate reports a collision otherwise.
func Between(prev, next model.OrderKey) Position {
	return Position{kind: positionBetween, prev: prev, next: next}
}

// Allocate computes a new order key for the given position.
//
// It returns ErrCollision when the surrounding keys leave no room: a front
// allocation that would reach Floor, a back allocation that would exceed
// Ceiling, or an interior position with no integer strictly between its
// neighbors.
func Allocate(pos Position) (model.OrderKey, error) {
	switch pos.kind {
	case positionInitial:
		return Seed, nil
	case positionFront:
		k := pos.next - Gap
		if k <= Floor {
			return 0, ErrCollision
		}
		return k, nil
	case positionBack:
		k := pos.prev + Gap
		if k >= Ceiling {
			return 0, ErrCollision
		}
		return k, nil
	case positionBetween:
		if pos.next-pos.prev <= 1 {
			return 0, ErrCollision
		}
		return pos.prev + 1, nil
	default:
		return 0, ErrCollision
	}
}
