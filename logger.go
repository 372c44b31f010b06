package ephtile

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with ephtile-specific context.
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
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithFile adds a file (blob name) field to the logger.
func (l *Logger) WithFile(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("file", name),
	}
}

// LogChunkDecoded logs a successfully decoded tile table.
func (l *Logger) LogChunkDecoded(ctx context.Context, t *Table, fieldErrors int) {
	l.DebugContext(ctx, "chunk decoded",
		"tag", t.Tag,
		"nuniq", t.SpatialKey,
		"order", t.Order(),
		"rows", len(t.Rows),
		"field_errors", fieldErrors,
	)
}

// LogChunkSkipped logs a chunk that could not be decoded.
func (l *Logger) LogChunkSkipped(ctx context.Context, index int, tag string, err error) {
	l.WarnContext(ctx, "chunk skipped",
		"index", index,
		"tag", tag,
		"error", err,
	)
}

// LogFile logs the outcome of decoding one container.
func (l *Logger) LogFile(ctx context.Context, name string, tables, skipped int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "file failed",
			"file", name,
			"error", err,
		)
		return
	}
	if skipped > 0 {
		l.WarnContext(ctx, "file decoded with skipped chunks",
			"file", name,
			"tables", tables,
			"skipped", skipped,
		)
		return
	}
	l.DebugContext(ctx, "file decoded",
		"file", name,
		"tables", tables,
	)
}

// LogBatch logs the summary of a bulk extraction.
func (l *Logger) LogBatch(ctx context.Context, files, failed, rows int) {
	if failed > 0 {
		l.WarnContext(ctx, "extraction completed with failures",
			"files", files,
			"failed", failed,
			"success", files-failed,
			"rows", rows,
		)
	} else {
		l.InfoContext(ctx, "extraction completed",
			"files", files,
			"rows", rows,
		)
	}
}
