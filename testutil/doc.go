// Package testutil provides testing utilities for catview.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, thread-safe RNG and helpers for generating item id
// sets and permutations of them.
//
// # Deterministic Permutations
//
//	rng := testutil.NewRNG(seed)
//	ids := testutil.ItemIDs("item", 20)
//	seq := testutil.Shuffle(rng, ids)
package testutil
