package engine

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordView is called after each merged-view read.
	// items is the number of entries returned, err is nil if successful.
	RecordView(items int, duration time.Duration, err error)

	// RecordReorder is called after each reorder operation.
	// written is the number of override rows persisted.
	RecordReorder(written int, duration time.Duration, err error)

	// RecordRebalance is called when a key-space rebalance runs.
	// window is the number of items whose keys were respaced.
	RecordRebalance(window int, err error)

	// RecordHide is called after each visibility toggle.
	RecordHide(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordView(int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordReorder(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordRebalance(int, error)              {}
func (NoopMetricsCollector) RecordHide(time.Duration, error)         {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ViewCount       atomic.Int64
	ViewErrors      atomic.Int64
	ViewTotalNanos  atomic.Int64
	ReorderCount    atomic.Int64
	ReorderErrors   atomic.Int64
	ReorderWrites   atomic.Int64
	RebalanceCount  atomic.Int64
	RebalanceErrors atomic.Int64
	HideCount       atomic.Int64
	HideErrors      atomic.Int64
}

func (b *BasicMetricsCollector) RecordView(items int, duration time.Duration, err error) {
	b.ViewCount.Add(1)
	b.ViewTotalNanos.Add(int64(duration))
	if err != nil {
		b.ViewErrors.Add(1)
	}
}

func (b *BasicMetricsCollector) RecordReorder(written int, duration time.Duration, err error) {
	b.ReorderCount.Add(1)
	b.ReorderWrites.Add(int64(written))
	if err != nil {
		b.ReorderErrors.Add(1)
	}
}

func (b *BasicMetricsCollector) RecordRebalance(window int, err error) {
	b.RebalanceCount.Add(1)
	if err != nil {
		b.RebalanceErrors.Add(1)
	}
}

func (b *BasicMetricsCollector) RecordHide(duration time.Duration, err error) {
	b.HideCount.Add(1)
	if err != nil {
		b.HideErrors.Add(1)
	}
}

// Stats is a point-in-time snapshot of BasicMetricsCollector counters.
type Stats struct {
	ViewCount      int64
	ViewErrors     int64
	ViewAvgNanos   int64
	ReorderCount   int64
	ReorderErrors  int64
	ReorderWrites  int64
	RebalanceCount int64
	HideCount      int64
}

// GetStats returns current metrics as a snapshot.
func (b *BasicMetricsCollector) GetStats() Stats {
	s := Stats{
		ViewCount:      b.ViewCount.Load(),
		ViewErrors:     b.ViewErrors.Load(),
		ReorderCount:   b.ReorderCount.Load(),
		ReorderErrors:  b.ReorderErrors.Load(),
		ReorderWrites:  b.ReorderWrites.Load(),
		RebalanceCount: b.RebalanceCount.Load(),
		HideCount:      b.HideCount.Load(),
	}
	if s.ViewCount > 0 {
		s.ViewAvgNanos = b.ViewTotalNanos.Load() / s.ViewCount
	}
	return s
}
