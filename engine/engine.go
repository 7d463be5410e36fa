// Package engine implements the personalized-catalog ordering engine: it
// merges shared defaults, owner-created items and sparse per-owner overrides
// into a deterministic view, and persists reorders by rewriting only the
// displaced rows.
package engine

import (
	"github.com/hupe1980/catview/cache"
	"github.com/hupe1980/catview/catalog"
	"github.com/hupe1980/catview/override"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Engine behavior.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Engine resolves per-owner views over a shared catalog and applies
// ordering and visibility changes through the override store.
//
// All methods are safe for concurrent use as long as the underlying
// stores are.
type Engine struct {
	catalog   catalog.Store
	overrides override.Store
	cache     *cache.CatalogCache
	metrics   MetricsCollector
	logger    *Logger
}

// New creates an Engine over the given stores. The cache serves shared
// defaults and the baseline order table; owner-created items and overrides
// are always read fresh.
func New(cat catalog.Store, ovr override.Store, c *cache.CatalogCache, optFns ...Option) *Engine {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	return &Engine{
		catalog:   cat,
		overrides: ovr,
		cache:     c,
		metrics:   o.metricsCollector,
		logger:    o.logger,
	}
}
