// Package log defines the logging contract for watchstream and an
// implementation of it on top of the Zap logging framework.
package log

import (
	"context"
)

// Logger is the contract for watchstream's logging implementation.
//
// A self-contained usage example looks as follows:
//
//	logger.Named("watch").With(
//	    "target", "127.0.0.1:8080",
//	    "attempt", 3,
//	).Info(ctx, "stream re-established")
type Logger interface {
	// Named adds a sub-scope to the logger.
	Named(name string) Logger

	// With returns a logger annotated with a variadic number of fields.
	// Arguments are consumed in pairs, the first element being the field
	// key and the second the field value.
	With(args ...interface{}) Logger

	// Debug logs a message at level Debug with support for string
	// formatting, annotated with fields provided through With().
	Debug(ctx context.Context, template string, args ...interface{})

	// Info logs a message at level Info.
	Info(ctx context.Context, template string, args ...interface{})

	// Warn logs a message at level Warn.
	Warn(ctx context.Context, template string, args ...interface{})

	// Error logs a message at level Error.
	Error(ctx context.Context, template string, args ...interface{})

	// Panic logs a message at level Panic and immediately panics.
	Panic(ctx context.Context, template string, args ...interface{})

	// Fatal logs a message at level Fatal and immediately calls os.Exit.
	Fatal(ctx context.Context, template string, args ...interface{})

	// UpdateLogLevel changes the minimum enabled level at runtime.
	// An invalid level string leaves the current level in place.
	UpdateLogLevel(level string)

	// GetLevel returns the current minimum enabled level.
	GetLevel() string

	// Sync flushes any buffered log entries.
	Sync() error
}
