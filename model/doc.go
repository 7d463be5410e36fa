// Package model defines the shared value types of the catview data model:
// catalog items, per-owner override records, and merged view entries.
//
// The types here are intentionally free of behavior. The invariants that tie
// them together (sparse overrides, baseline ordering, deterministic merge)
// live in the engine package.
package model
