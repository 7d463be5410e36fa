// Package cache provides the process-local catalog cache: the full
// default-item set per partition plus the baseline order table.
//
// Both change rarely but are read on every view request. Entries are
// refreshed by a timestamp check on read rather than a background thread,
// so there is no extra concurrency machinery; concurrent refreshes of the
// same entry are collapsed by a singleflight group. Staleness only delays
// visibility of brand-new default items, never the correctness of existing
// overrides.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/catview/baseline"
	"github.com/hupe1980/catview/catalog"
	"github.com/hupe1980/catview/model"
)

// DefaultTTL bounds how long cached defaults and baseline tables are served
// before a reload.
const DefaultTTL = 5 * time.Minute

// BaselineLoader loads the baseline order table, e.g. from a blob store.
type BaselineLoader func(ctx context.Context) (*baseline.Table, error)

// StaticBaseline returns a loader that always serves the given table. Use it
// when the table is compiled in or loaded once at startup.
func StaticBaseline(t *baseline.Table) BaselineLoader {
	return func(context.Context) (*baseline.Table, error) { return t, nil }
}

// Option configures a CatalogCache.
type Option func(*CatalogCache)

// WithTTL sets the staleness bound for cached entries.
func WithTTL(ttl time.Duration) Option {
	return func(c *CatalogCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *CatalogCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithOnRefresh installs a hook invoked after every reload attempt, for
// metrics and logging. component is "defaults" or "baseline".
func WithOnRefresh(fn func(component string, duration time.Duration, err error)) Option {
	return func(c *CatalogCache) {
		c.onRefresh = fn
	}
}

// CatalogCache is a time-boxed cache over a catalog.Store and a baseline
// loader. Safe for concurrent use.
type CatalogCache struct {
	store        catalog.Store
	loadBaseline BaselineLoader
	ttl          time.Duration
	now          func() time.Time
	onRefresh    func(component string, duration time.Duration, err error)

	group singleflight.Group

	mu        sync.RWMutex
	defaults  map[model.Partition]*defaultsEntry
	tbl       *baseline.Table
	tblLoaded time.Time
}

type defaultsEntry struct {
	items    []model.Item
	loadedAt time.Time
}

// New creates a catalog cache over the given store and baseline loader.
func New(store catalog.Store, loadBaseline BaselineLoader, optFns ...Option) *CatalogCache {
	c := &CatalogCache{
		store:        store,
		loadBaseline: loadBaseline,
		ttl:          DefaultTTL,
		now:          time.Now,
		defaults:     make(map[model.Partition]*defaultsEntry),
	}
	for _, fn := range optFns {
		fn(c)
	}
	return c
}

// Defaults returns the cached default items for a partition, reloading them
// when the TTL has expired. When a reload fails and a stale copy exists, the
// stale copy is served: a complete stale default set still yields a
// consistent ordering, while failing the request would not.
func (c *CatalogCache) Defaults(ctx context.Context, partition model.Partition) ([]model.Item, error) {
	c.mu.RLock()
	entry := c.defaults[partition]
	c.mu.RUnlock()

	if entry != nil && c.now().Sub(entry.loadedAt) < c.ttl {
		return entry.items, nil
	}

	v, err, _ := c.group.Do("defaults:"+string(partition), func() (any, error) {
		start := c.now()
		items, err := c.store.ListDefaults(ctx, partition)
		c.observe("defaults", c.now().Sub(start), err)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.defaults[partition] = &defaultsEntry{items: items, loadedAt: c.now()}
		c.mu.Unlock()
		return items, nil
	})
	if err != nil {
		if entry != nil {
			return entry.items, nil
		}
		return nil, fmt.Errorf("load defaults for partition %q: %w", partition, err)
	}
	return v.([]model.Item), nil
}

// Baseline returns the cached baseline table, reloading it when the TTL has
// expired. Serves a stale table on reload failure when one exists.
func (c *CatalogCache) Baseline(ctx context.Context) (*baseline.Table, error) {
	c.mu.RLock()
	tbl, loaded := c.tbl, c.tblLoaded
	c.mu.RUnlock()

	if tbl != nil && c.now().Sub(loaded) < c.ttl {
		return tbl, nil
	}

	v, err, _ := c.group.Do("baseline", func() (any, error) {
		start := c.now()
		fresh, err := c.loadBaseline(ctx)
		c.observe("baseline", c.now().Sub(start), err)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.tbl = fresh
		c.tblLoaded = c.now()
		c.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		if tbl != nil {
			return tbl, nil
		}
		return nil, fmt.Errorf("load baseline table: %w", err)
	}
	return v.(*baseline.Table), nil
}

// Invalidate drops all cached state. Not required for correctness; callers
// may use it after bulk catalog changes to shorten the staleness window.
func (c *CatalogCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaults = make(map[model.Partition]*defaultsEntry)
	c.tbl = nil
	c.tblLoaded = time.Time{}
}

func (c *CatalogCache) observe(component string, d time.Duration, err error) {
	if c.onRefresh != nil {
		c.onRefresh(component, d, err)
	}
}
