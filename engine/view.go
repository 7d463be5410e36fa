package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/catview/baseline"
	"github.com/hupe1980/catview/model"
)

// View computes the merged, ordered view for an owner and partition.
//
// The view contains every default item plus the owner's custom items, with
// override order keys and visibility applied, sorted by effective order key
// and item ID. When includeHidden is false, hidden items are filtered out;
// when true they are returned with Hidden set so callers can render them in
// a management UI.
//
// View never writes: computing a view for an owner with no overrides stores
// nothing.
func (e *Engine) View(ctx context.Context, owner model.OwnerID, partition model.Partition, includeHidden bool) ([]model.ViewEntry, error) {
	start := time.Now()

	entries, err := e.buildView(ctx, owner, partition, includeHidden)

	e.metrics.RecordView(len(entries), time.Since(start), err)
	e.logger.LogView(ctx, owner, len(entries), err)

	return entries, err
}

func (e *Engine) buildView(ctx context.Context, owner model.OwnerID, partition model.Partition, includeHidden bool) ([]model.ViewEntry, error) {
	var (
		defaults  []model.Item
		customs   []model.Item
		overrides []model.Override
		tbl       *baseline.Table
	)

	// The three source reads and the baseline table are independent.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if defaults, err = e.cache.Defaults(gctx, partition); err != nil {
			return fmt.Errorf("list defaults: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		if customs, err = e.catalog.ListOwned(gctx, owner, partition); err != nil {
			return fmt.Errorf("list owned: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		if overrides, err = e.overrides.List(gctx, owner); err != nil {
			return fmt.Errorf("list overrides: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		if tbl, err = e.cache.Baseline(gctx); err != nil {
			return fmt.Errorf("load baseline: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	byItem := make(map[model.ItemID]model.Override, len(overrides))
	for _, o := range overrides {
		byItem[o.ItemID] = o
	}

	entries := make([]model.ViewEntry, 0, len(defaults)+len(customs))

	for _, it := range defaults {
		order, ok := tbl.Lookup(partition, it.ID)
		if !ok {
			// A missing baseline row is a catalog configuration gap, not a
			// request failure: the item sorts last instead of breaking views.
			order = model.OrderAppend
			e.logger.LogMissingBaseline(ctx, partition, it.ID)
		}
		entries = append(entries, model.ViewEntry{Item: it, Order: order})
	}

	for _, it := range customs {
		entries = append(entries, model.ViewEntry{Item: it, Order: model.OrderAppend})
	}

	hidden := roaring.New()
	for i := range entries {
		o, ok := byItem[entries[i].Item.ID]
		if !ok {
			continue
		}
		if o.HasOrder {
			entries[i].Order = o.Order
		}
		if o.Hidden {
			entries[i].Hidden = true
			hidden.Add(uint32(i))
		}
	}

	if !includeHidden && !hidden.IsEmpty() {
		visible := make([]model.ViewEntry, 0, len(entries)-int(hidden.GetCardinality()))
		for i := range entries {
			if !hidden.Contains(uint32(i)) {
				visible = append(visible, entries[i])
			}
		}
		entries = visible
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Order != entries[j].Order {
			return entries[i].Order < entries[j].Order
		}
		return entries[i].Item.ID < entries[j].Item.ID
	})

	return entries, nil
}
