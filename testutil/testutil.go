package testutil

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/hupe1980/catview/model"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Perm returns a pseudo-random permutation of the integers [0,n).
func (r *RNG) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Perm(n)
}

// ItemIDs generates n sequential item ids with the given prefix.
func ItemIDs(prefix string, n int) []model.ItemID {
	ids := make([]model.ItemID, n)
	for i := range ids {
		ids[i] = model.ItemID(fmt.Sprintf("%s-%03d", prefix, i))
	}
	return ids
}

// Shuffle returns a shuffled copy of ids. The input is not modified.
func Shuffle(r *RNG, ids []model.ItemID) []model.ItemID {
	perm := r.Perm(len(ids))
	out := make([]model.ItemID, len(ids))
	for i, p := range perm {
		out[i] = ids[p]
	}
	return out
}

// MoveOne returns a copy of ids with the element at from moved to position
// to, everything else keeping relative order.
func MoveOne(ids []model.ItemID, from, to int) []model.ItemID {
	out := make([]model.ItemID, 0, len(ids))
	out = append(out, ids[:from]...)
	out = append(out, ids[from+1:]...)

	moved := make([]model.ItemID, 0, len(ids))
	moved = append(moved, out[:to]...)
	moved = append(moved, ids[from])
	moved = append(moved, out[to:]...)
	return moved
}
