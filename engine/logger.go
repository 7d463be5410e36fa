package engine

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/catview/model"
)

// Logger wraps slog.Logger with catview-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithOwner adds an owner field to the logger.
func (l *Logger) WithOwner(owner model.OwnerID) *Logger {
	return &Logger{
		Logger: l.Logger.With("owner", string(owner)),
	}
}

// WithPartition adds a partition field to the logger.
func (l *Logger) WithPartition(p model.Partition) *Logger {
	return &Logger{
		Logger: l.Logger.With("partition", string(p)),
	}
}

// LogView logs a merged-view read.
func (l *Logger) LogView(ctx context.Context, owner model.OwnerID, items int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "view failed",
			"owner", string(owner),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "view completed",
			"owner", string(owner),
			"items", items,
		)
	}
}

// LogReorder logs a reorder operation.
func (l *Logger) LogReorder(ctx context.Context, owner model.OwnerID, written int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "reorder failed",
			"owner", string(owner),
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "reorder completed",
			"owner", string(owner),
			"written", written,
		)
	}
}

// LogRebalance logs a key-space rebalance.
func (l *Logger) LogRebalance(ctx context.Context, owner model.OwnerID, window int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "rebalance failed",
			"owner", string(owner),
			"window", window,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "rebalance completed",
			"owner", string(owner),
			"window", window,
		)
	}
}

// LogMissingBaseline logs a default item without a baseline order entry.
func (l *Logger) LogMissingBaseline(ctx context.Context, partition model.Partition, id model.ItemID) {
	l.WarnContext(ctx, "default item missing baseline order, appending last",
		"partition", string(partition),
		"item", string(id),
	)
}
