// Package logging provides the structured logger shared by the search
// packages and the command line.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger wraps slog.Logger with search-specific context.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler.
// If handler is nil, a text handler on stderr at INFO is used.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// New builds a Logger writing to stderr. format is "text" or "json";
// level is one of DEBUG, INFO, WARN, ERROR (case-insensitive).
func New(level, format string) *Logger {
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level, format string) *Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// ParseLevel maps a level name to slog.Level. Unknown names map to INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NoopLogger returns a Logger that discards all output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))}
}

// WithDimension adds a dimension field.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{Logger: l.Logger.With("dimension", dim)}
}

// WithSeed adds a seed field.
func (l *Logger) WithSeed(seed uint64) *Logger {
	return &Logger{Logger: l.Logger.With("seed", seed)}
}

// WithRunID adds a run_id field.
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{Logger: l.Logger.With("run_id", id)}
}

// LogCandidate logs the outcome of one candidate descent.
func (l *Logger) LogCandidate(ctx context.Context, index int, status string, steps int, loss float64, accepted bool) {
	if accepted {
		l.InfoContext(ctx, "fiducial found",
			"candidate", index,
			"steps", steps,
			"loss", loss,
		)
		return
	}
	l.DebugContext(ctx, "candidate finished",
		"candidate", index,
		"status", status,
		"steps", steps,
		"loss", loss,
	)
}

// LogSeed logs the end of one seed's sweep.
func (l *Logger) LogSeed(ctx context.Context, seed uint64, found bool, elapsed time.Duration) {
	l.InfoContext(ctx, "seed finished",
		"seed", seed,
		"found", found,
		"elapsed", elapsed,
	)
}

// LogRun logs the end of a whole search.
func (l *Logger) LogRun(ctx context.Context, found bool, seedsAttempted int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"seeds_attempted", seedsAttempted,
			"error", err,
		)
		return
	}
	if found {
		l.InfoContext(ctx, "search completed",
			"found", true,
			"seeds_attempted", seedsAttempted,
			"elapsed", elapsed,
		)
		return
	}
	l.WarnContext(ctx, "search completed without a solution",
		"seeds_attempted", seedsAttempted,
		"elapsed", elapsed,
	)
}

// LogPersist logs a write of an accepted result.
func (l *Logger) LogPersist(ctx context.Context, target string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "persist failed",
			"target", target,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "result saved",
		"target", target,
	)
}
