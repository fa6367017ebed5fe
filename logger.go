package mrpt

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with index-specific helpers.
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
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// LogBuild logs an index build.
func (l *Logger) LogBuild(ctx context.Context, size, numTrees, depth int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"size", size,
			"num_trees", numTrees,
			"depth", depth,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "index built",
		"size", size,
		"num_trees", numTrees,
		"depth", depth,
		"elapsed", elapsed,
	)
}

// LogQuery logs a query.
func (l *Logger) LogQuery(ctx context.Context, k, candidates, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"k", k,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "query completed",
		"k", k,
		"candidates", candidates,
		"results", results,
	)
}

// LogSave logs an artifact save.
func (l *Logger) LogSave(ctx context.Context, indexPath, paramsPath string, bytes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"index_path", indexPath,
			"parameters_path", paramsPath,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "index saved",
		"index_path", indexPath,
		"parameters_path", paramsPath,
		"bytes", bytes,
	)
}

// LogLoad logs an artifact load.
func (l *Logger) LogLoad(ctx context.Context, indexPath, paramsPath string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"index_path", indexPath,
			"parameters_path", paramsPath,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "index loaded",
		"index_path", indexPath,
		"parameters_path", paramsPath,
		"size", size,
	)
}
