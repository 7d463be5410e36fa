package catview

import (
	"context"
	"fmt"

	"github.com/hupe1980/catview/cache"
	"github.com/hupe1980/catview/catalog"
	"github.com/hupe1980/catview/engine"
	"github.com/hupe1980/catview/model"
	"github.com/hupe1980/catview/override"
	"github.com/hupe1980/catview/snapshot"
)

// Catview merges a shared catalog with sparse per-owner overrides into
// ordered, filtered views, and persists ordering and visibility changes with
// minimal writes.
//
// A Catview instance is safe for concurrent use as long as its stores are.
// Each owner's overrides are independent of every other owner's, so
// cross-owner concurrency needs no coordination.
type Catview struct {
	engine    *engine.Engine
	cache     *cache.CatalogCache
	snapshots *snapshot.Manager
	logger    *engine.Logger
}

// New creates a Catview over a catalog store, an override store and a
// baseline order loader.
func New(cat catalog.Store, ovr override.Store, baseline cache.BaselineLoader, optFns ...Option) (*Catview, error) {
	if cat == nil {
		return nil, fmt.Errorf("catview: catalog store is required")
	}
	if ovr == nil {
		return nil, fmt.Errorf("catview: override store is required")
	}
	if baseline == nil {
		return nil, fmt.Errorf("catview: baseline loader is required")
	}

	o := applyOptions(optFns)

	cacheOpts := []cache.Option{cache.WithOnRefresh(o.onCacheRefresh)}
	if o.cacheTTL > 0 {
		cacheOpts = append(cacheOpts, cache.WithTTL(o.cacheTTL))
	}
	c := cache.New(cat, baseline, cacheOpts...)

	cv := &Catview{
		engine: engine.New(cat, ovr, c,
			engine.WithLogger(o.logger),
			engine.WithMetricsCollector(o.metricsCollector),
		),
		cache:  c,
		logger: o.logger,
	}

	if o.snapshotStore != nil {
		cv.snapshots = snapshot.NewManager(ovr, o.snapshotStore, o.snapshotOptions...)
	}

	return cv, nil
}

// View returns the merged, ordered item list for an owner and partition.
// With includeHidden, hidden items are returned with their Hidden flag set
// instead of being filtered out.
func (cv *Catview) View(ctx context.Context, owner model.OwnerID, partition model.Partition, includeHidden bool) ([]model.ViewEntry, error) {
	entries, err := cv.engine.View(ctx, owner, partition, includeHidden)
	return entries, translateError(err)
}

// Reorder replaces the owner's ordering for a partition with sequence, which
// must be a permutation of the current view including hidden items. Only
// displaced items are written.
func (cv *Catview) Reorder(ctx context.Context, owner model.OwnerID, partition model.Partition, sequence []model.ItemID, optFns ...ReorderOption) error {
	return translateError(cv.engine.Reorder(ctx, owner, partition, sequence, optFns...))
}

// SetHidden toggles one item's visibility for an owner without affecting
// its (or any other item's) ordering.
func (cv *Catview) SetHidden(ctx context.Context, owner model.OwnerID, itemID model.ItemID, hidden bool) error {
	return translateError(cv.engine.SetHidden(ctx, owner, itemID, hidden))
}

// InvalidateCache drops the cached defaults and baseline table so the next
// view reloads them. Call after out-of-band catalog changes that must be
// visible before the TTL expires.
func (cv *Catview) InvalidateCache() {
	cv.cache.Invalidate()
}

// ExportOverrides writes a snapshot of the owner's overrides to the
// configured snapshot store. Returns ErrSnapshotsDisabled when New was not
// given a snapshot store.
func (cv *Catview) ExportOverrides(ctx context.Context, owner model.OwnerID, name string) error {
	if cv.snapshots == nil {
		return ErrSnapshotsDisabled
	}
	return translateError(cv.snapshots.Export(ctx, owner, name))
}

// ImportOverrides restores a previously exported snapshot into the override
// store and returns the number of rows applied.
func (cv *Catview) ImportOverrides(ctx context.Context, owner model.OwnerID, name string) (int, error) {
	if cv.snapshots == nil {
		return 0, ErrSnapshotsDisabled
	}
	n, err := cv.snapshots.Import(ctx, owner, name)
	return n, translateError(err)
}

// ListSnapshots returns the names of stored snapshots under prefix.
func (cv *Catview) ListSnapshots(ctx context.Context, prefix string) ([]string, error) {
	if cv.snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}
	names, err := cv.snapshots.List(ctx, prefix)
	return names, translateError(err)
}
