// Package log provides the structured logging interface used across nestcv.
//
// Components never reach for a global logger. The experiment context carries a
// Logger and every evaluator, selector and runner derives a contextual logger
// from it with With, so each record names the processor, algorithms and fold it
// belongs to. The default implementation is backed by zerolog.
//
// Example usage:
//
//	logger := ctx.Logger.With(
//	    log.ProcessorKey, "expression",
//	    log.ClassifierKey, "svm",
//	)
//	logger.Info("Predictions verified",
//	    log.OuterFoldKey, 3,
//	    log.PredsKey, 42,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. An error value may appear where a key
// is expected (typically first, as in logger.Error("msg", err, ...)); it is logged
// under ErrAttrKey together with its stack trace.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	// If an error value is provided as the first field, stack trace
	// information is included automatically.
	//
	// Example:
	//   logger.Error("Prediction validation failed",
	//       err,
	//       log.OuterFoldKey, 2,
	//   )
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	// Use it to skip building expensive fields that would be discarded.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4 // Detailed diagnostic information
	LevelInfo  Level = 0  // General operational information
	LevelWarn  Level = 4  // Warning conditions
	LevelError Level = 8  // Error conditions
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider defines an interface for creating and configuring loggers.
// The CLI installs one process-wide provider; library code receives loggers
// explicitly instead.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
