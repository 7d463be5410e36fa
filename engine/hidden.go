package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/catview/catalog"
	"github.com/hupe1980/catview/model"
	"github.com/hupe1980/catview/override"
)

// SetHidden toggles an item's visibility for one owner. It is a plain
// override upsert: no order keys move, and a custom order the owner already
// gave the item is preserved.
func (e *Engine) SetHidden(ctx context.Context, owner model.OwnerID, itemID model.ItemID, hidden bool) error {
	start := time.Now()

	err := e.setHidden(ctx, owner, itemID, hidden)

	e.metrics.RecordHide(time.Since(start), err)
	if err != nil {
		e.logger.ErrorContext(ctx, "set hidden failed",
			"owner", string(owner),
			"item", string(itemID),
			"error", err,
		)
	}

	return err
}

func (e *Engine) setHidden(ctx context.Context, owner model.OwnerID, itemID model.ItemID, hidden bool) error {
	it, err := e.catalog.Get(ctx, itemID)
	if errors.Is(err, catalog.ErrNotFound) {
		return &ValidationError{Op: "setHidden", ItemID: itemID, cause: ErrUnknownItem}
	}
	if err != nil {
		return fmt.Errorf("resolve %q: %w", itemID, err)
	}
	if !it.IsDefault() && it.Owner != owner {
		return &ValidationError{Op: "setHidden", ItemID: itemID, cause: ErrUnknownItem}
	}

	if err := e.overrides.Upsert(ctx, owner, itemID, override.Patch{Hidden: override.Bool(hidden)}); err != nil {
		return fmt.Errorf("persist hidden flag: %w", err)
	}
	return nil
}
