package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger on top of zerolog.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger returns a JSON logger writing to w at the given minimum level.
func NewZerologLogger(w io.Writer, level Level) *ZerologLogger {
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &ZerologLogger{zl: zerolog.Nop()}
}

// Debug implements Logger.Debug.
func (l *ZerologLogger) Debug(msg string, fields ...any) { emit(l.zl.Debug(), msg, fields) }

// Info implements Logger.Info.
func (l *ZerologLogger) Info(msg string, fields ...any) { emit(l.zl.Info(), msg, fields) }

// Warn implements Logger.Warn.
func (l *ZerologLogger) Warn(msg string, fields ...any) { emit(l.zl.Warn(), msg, fields) }

// Error implements Logger.Error.
func (l *ZerologLogger) Error(msg string, fields ...any) { emit(l.zl.Error(), msg, fields) }

// With implements Logger.With.
func (l *ZerologLogger) With(fields ...any) Logger {
	return &ZerologLogger{zl: withFields(l.zl.With(), fields).Logger()}
}

// Enabled implements Logger.Enabled.
func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	zlevel := toZerologLevel(level)
	return zlevel >= l.zl.GetLevel() && zlevel >= zerolog.GlobalLevel()
}

func emit(e *zerolog.Event, msg string, fields []any) {
	if !e.Enabled() {
		return
	}
	appendFields(e, fields).Msg(msg)
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// ToLogLevel parses a level name as used by the CLI flags and config.
func ToLogLevel(level string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

// provider is the process-wide LoggerProvider backed by zerolog.
type provider struct {
	mu    sync.RWMutex
	w     io.Writer
	level Level
	base  *ZerologLogger
}

// NewProvider creates a LoggerProvider writing to w.
func NewProvider(w io.Writer, level Level) LoggerProvider {
	return &provider{w: w, level: level, base: NewZerologLogger(w, level)}
}

func (p *provider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.base
}

func (p *provider) GetLoggerWithName(name string) Logger {
	return p.GetLogger().With(ComponentKey, name)
}

func (p *provider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	p.base = NewZerologLogger(p.w, level)
}

var (
	defaultMu       sync.RWMutex
	defaultProvider = NewProvider(os.Stderr, LevelInfo)
)

// SetupLogger installs a default provider writing JSON lines to w.
func SetupLogger(level string, w io.Writer) error {
	lvl, err := ToLogLevel(level)
	if err != nil {
		return err
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	SetProvider(NewProvider(w, lvl))
	return nil
}

// SetProvider replaces the default provider.
func SetProvider(p LoggerProvider) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultProvider = p
}

// GetLogger returns the default provider's logger.
func GetLogger() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultProvider.GetLogger()
}

// GetLoggerWithName returns the default provider's logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultProvider.GetLoggerWithName(name)
}
