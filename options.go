package catview

import (
	"log/slog"
	"time"

	"github.com/hupe1980/catview/blobstore"
	"github.com/hupe1980/catview/engine"
	"github.com/hupe1980/catview/model"
	"github.com/hupe1980/catview/snapshot"
)

type options struct {
	cacheTTL         time.Duration
	metricsCollector engine.MetricsCollector
	logger           *engine.Logger
	onCacheRefresh   func(component string, duration time.Duration, err error)
	snapshotStore    blobstore.BlobStore
	snapshotOptions  []snapshot.Option
}

// Option configures Catview constructor behavior.
type Option func(*options)

// WithCacheTTL sets how long shared defaults and the baseline table are
// served from memory before being reloaded. Staleness only delays the
// appearance of new default items; it never affects override correctness.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.cacheTTL = ttl
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc engine.MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = engine.NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
func WithLogger(logger *engine.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(engine.NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = engine.NewTextLogger(level)
	}
}

// WithSnapshotStore enables override snapshots backed by the given blob
// store (local directory, S3, MinIO or in-memory).
func WithSnapshotStore(store blobstore.BlobStore, optFns ...snapshot.Option) Option {
	return func(o *options) {
		o.snapshotStore = store
		o.snapshotOptions = optFns
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: engine.NoopMetricsCollector{},
		logger:           engine.NoopLogger(),
		onCacheRefresh:   func(string, time.Duration, error) {},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	// Cache refresh outcomes go to the configured logger.
	logger := o.logger
	o.onCacheRefresh = func(component string, duration time.Duration, err error) {
		if err != nil {
			logger.Error("catalog cache refresh failed", "component", component, "error", err)
			return
		}
		logger.Debug("catalog cache refreshed", "component", component, "duration", duration)
	}

	return o
}

// ReorderOption configures a single Reorder call.
type ReorderOption = engine.ReorderOption

// WithExpectedOrder attaches the id sequence the caller's view was based on
// as an optimistic precondition; see engine.WithExpectedOrder.
func WithExpectedOrder(seq []model.ItemID) ReorderOption {
	return engine.WithExpectedOrder(seq)
}
