// Package logging provides structured logging utilities using the standard
// library's log/slog package. It offers constructors with consistent
// configuration and helpers for propagating loggers through contexts.
package logging

import (
	"context"
	"log/slog"
	"os"
)

// NewLogger creates a new structured logger with JSON output.
// The log level can be controlled via the LOG_LEVEL environment variable.
// Supported levels: debug, info (default).
func NewLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, handlerOptions()))
}

// NewTextLogger creates a new structured logger with human-readable text
// output, useful for local development and the CLI.
func NewTextLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, handlerOptions()))
}

func handlerOptions() *slog.HandlerOptions {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	return &slog.HandlerOptions{
		Level: logLevel,
		// Add source code location for error and warn levels
		AddSource: logLevel <= slog.LevelWarn,
	}
}

// WithBatchID returns a new logger that includes the batch request ID.
// This enables tracing every fetch, fallback, and substitution of one
// tagging batch across log entries.
func WithBatchID(logger *slog.Logger, batchID string) *slog.Logger {
	if batchID == "" {
		return logger
	}
	return logger.With("batch_id", batchID)
}

type contextKey string

const loggerContextKey contextKey = "logger"

// FromContext retrieves the logger from the context, or returns the default
// logger if not found.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}
