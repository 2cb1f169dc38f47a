// Package logging provides structured logging utilities using the standard library's log/slog package.
// It offers helper functions for creating loggers with consistent configuration and context propagation.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// NewLogger creates a new structured logger with JSON output on stdout.
// The log level can be controlled via the LOG_LEVEL environment variable.
// Supported levels: debug, info, warn, error
// Default level: info
func NewLogger() *slog.Logger {
	return newLogger(os.Stdout, ParseLevel(os.Getenv("LOG_LEVEL")), false)
}

// NewTextLogger creates a new structured logger with human-readable text output.
// The CLI uses it so that one-shot commands print readable lines.
func NewTextLogger(w io.Writer) *slog.Logger {
	return newLogger(w, ParseLevel(os.Getenv("LOG_LEVEL")), true)
}

func newLogger(w io.Writer, level slog.Level, text bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		// debug 時のみ呼び出し元を付与
		AddSource: level <= slog.LevelDebug,
	}
	if text {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values yield info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewJobID returns a fresh identifier for one crawl or classification run.
func NewJobID() string {
	return uuid.NewString()
}

// WithJobID stores the run identifier in the context.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, jobIDContextKey, jobID)
}

// JobIDFromContext returns the run identifier, or "" if none was set.
func JobIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(jobIDContextKey).(string); ok {
		return id
	}
	return ""
}

// WithJob returns a new logger that includes the job ID from the context.
// This enables correlating every log entry of one scheduled run.
func WithJob(ctx context.Context, logger *slog.Logger) *slog.Logger {
	jobID := JobIDFromContext(ctx)
	if jobID == "" {
		return logger
	}
	return logger.With("job_id", jobID)
}

// WithFields returns a new logger with additional structured fields.
// Fields are provided as key-value pairs.
func WithFields(logger *slog.Logger, fields map[string]any) *slog.Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return logger.With(args...)
}

// FromContext retrieves the logger from the context, or returns the default logger if not found.
// The job ID, when present, is attached to the returned logger.
func FromContext(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerContextKey).(*slog.Logger)
	if !ok {
		logger = slog.Default()
	}
	return WithJob(ctx, logger)
}

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

type contextKey string

const (
	loggerContextKey contextKey = "logger"
	jobIDContextKey  contextKey = "job_id"
)
