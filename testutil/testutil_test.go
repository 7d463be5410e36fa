package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/catview/model"
)

func TestRNGDeterminism(t *testing.T) {
	a := NewRNG(42)
	b := NewRNG(42)

	ids := ItemIDs("x", 10)
	assert.Equal(t, Shuffle(a, ids), Shuffle(b, ids))

	a.Reset()
	first := Shuffle(a, ids)
	a.Reset()
	assert.Equal(t, first, Shuffle(a, ids))
}

func TestShuffleIsPermutation(t *testing.T) {
	rng := NewRNG(7)
	ids := ItemIDs("x", 25)

	got := Shuffle(rng, ids)
	assert.ElementsMatch(t, ids, got)
	assert.Equal(t, model.ItemID("x-000"), ids[0], "input untouched")
}

func TestMoveOne(t *testing.T) {
	ids := []model.ItemID{"a", "b", "c", "d"}

	assert.Equal(t, []model.ItemID{"a", "c", "b", "d"}, MoveOne(ids, 2, 1))
	assert.Equal(t, []model.ItemID{"d", "a", "b", "c"}, MoveOne(ids, 3, 0))
	assert.Equal(t, []model.ItemID{"b", "c", "d", "a"}, MoveOne(ids, 0, 3))
	assert.Equal(t, ids, MoveOne(ids, 1, 1))
}
