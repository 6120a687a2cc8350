// Package log provides structured, leveled logging for the jsonrpc module.
//
// The package exposes a small Logger interface so that library code never
// depends on a concrete logging backend. The default implementation is built
// on go.uber.org/zap and supports logfmt and JSON output formats.
package log

import (
	"context"
	"fmt"
)

// Level identifies the minimum severity a logger will emit.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// ParseLevel converts a level name into a Level.
// It returns an error for unknown names.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return Level(s), nil
	}
	return "", fmt.Errorf("unknown log level: %q", s)
}

// Config controls the output of loggers created by NewZapLogger.
type Config struct {
	// Format selects the output encoding: "logfmt" (default) or "json".
	Format string
	// Level is the minimum severity to emit. Defaults to LevelInfo.
	Level Level
}

// Logger is the logging interface used throughout the module.
// keysAndValues are treated as alternating key-value pairs
// (e.g., "key1", value1, "key2", value2).
type Logger interface {
	// Debug logs a message at debug level.
	Debug(msg string, keysAndValues ...any)
	// Info logs a message at info level.
	Info(msg string, keysAndValues ...any)
	// Warn logs a message at warn level.
	Warn(msg string, keysAndValues ...any)
	// Error logs a message at error level.
	Error(msg string, keysAndValues ...any)
	// WithName returns a new logger whose name is extended with the given
	// component name. Names are joined with dots.
	WithName(name string) Logger
	// Name returns the full dot-joined name of the logger.
	Name() string
	// WithKV returns a new logger that includes the given key-value pair
	// in every entry it emits.
	WithKV(key string, value any) Logger
}

type loggerContextKey struct{}

// NewContext returns a context carrying the provided logger.
func NewContext(ctx context.Context, lg Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, lg)
}

// FromContext retrieves the logger stored in the context.
// If none is found, it returns a noop logger.
func FromContext(ctx context.Context) Logger {
	if lg, ok := ctx.Value(loggerContextKey{}).(Logger); ok {
		return lg
	}
	return NewNoopLogger()
}

// NewNoopLogger returns a logger that discards everything.
// It is used as the default wherever no logger is configured.
func NewNoopLogger() Logger {
	return noopLogger{}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any)       {}
func (noopLogger) Info(string, ...any)        {}
func (noopLogger) Warn(string, ...any)        {}
func (noopLogger) Error(string, ...any)       {}
func (l noopLogger) WithName(string) Logger   { return l }
func (noopLogger) Name() string               { return "" }
func (l noopLogger) WithKV(string, any) Logger { return l }
