// Package log provides testing utilities for structured logging.
//
// TestLogger is a real zerolog-backed Logger whose output is captured in memory,
// so tests assert on exactly what production code would emit.

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
)

// Buffer is a goroutine-safe byte buffer. Evaluator tasks log from many
// goroutines at once, so the capture target must serialize writes.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write implements io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything written so far.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Reset discards captured output.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// TestLogger captures all log records in memory for later inspection.
type TestLogger struct {
	*ZerologLogger
	buffer *Buffer
}

// NewTestLogger creates a new TestLogger with the specified minimum level.
//
// Example:
//
//	logger, buffer := log.NewTestLogger(log.LevelDebug)
//	logger.Info("test message", "key", "value")
//	output := buffer.String()
func NewTestLogger(level Level) (*TestLogger, *Buffer) {
	buffer := &Buffer{}
	return &TestLogger{
		ZerologLogger: NewZerologLogger(buffer, level),
		buffer:        buffer,
	}, buffer
}

// With implements Logger.With. The returned logger writes to the same buffer.
func (t *TestLogger) With(fields ...any) Logger {
	return &TestLogger{
		ZerologLogger: t.ZerologLogger.With(fields...).(*ZerologLogger),
		buffer:        t.buffer,
	}
}

// GetBuffer returns the capture buffer.
func (t *TestLogger) GetBuffer() *Buffer {
	return t.buffer
}

// GetLogEntries parses the captured output into one map per record.
func (t *TestLogger) GetLogEntries() ([]map[string]interface{}, error) {
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(t.buffer.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ContainsMessage reports whether any captured record contains message.
func (t *TestLogger) ContainsMessage(message string) bool {
	return strings.Contains(t.buffer.String(), message)
}

// ContainsField reports whether any record has the field with the given value.
// JSON numbers decode as float64.
func (t *TestLogger) ContainsField(key string, value interface{}) bool {
	entries, err := t.GetLogEntries()
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if fieldValue, exists := entry[key]; exists && fieldValue == value {
			return true
		}
	}
	return false
}

// CountLevel returns the number of records at the given zerolog level name ("error", "debug", ...).
func (t *TestLogger) CountLevel(level string) int {
	entries, err := t.GetLogEntries()
	if err != nil {
		return 0
	}
	n := 0
	for _, entry := range entries {
		if entry["level"] == level {
			n++
		}
	}
	return n
}

// Clear clears all captured log content.
func (t *TestLogger) Clear() {
	t.buffer.Reset()
}

// TestLoggerProvider implements LoggerProvider for testing scenarios.
type TestLoggerProvider struct {
	mu     sync.Mutex
	logger *TestLogger
}

// NewTestLoggerProvider creates a new test logger provider.
func NewTestLoggerProvider(level Level) (*TestLoggerProvider, *Buffer) {
	logger, buffer := NewTestLogger(level)
	return &TestLoggerProvider{logger: logger}, buffer
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *TestLoggerProvider) GetLogger() Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.logger
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *TestLoggerProvider) GetLoggerWithName(name string) Logger {
	return p.GetLogger().With(ComponentKey, name)
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *TestLoggerProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = &TestLogger{
		ZerologLogger: NewZerologLogger(p.logger.buffer, level),
		buffer:        p.logger.buffer,
	}
}
