package errors

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// logRecord is one captured slog record.
type logRecord struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// logCapture is a slog.Handler that buffers records so tests can assert
// on what the error handler and middleware logged.
type logCapture struct {
	mu      sync.Mutex
	records []logRecord
}

func (c *logCapture) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, logRecord{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	return nil
}

func (c *logCapture) Enabled(context.Context, slog.Level) bool { return true }

func (c *logCapture) WithAttrs([]slog.Attr) slog.Handler { return c }

func (c *logCapture) WithGroup(string) slog.Handler { return c }

// GetRecords returns a copy of everything captured so far.
func (c *logCapture) GetRecords() []logRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	records := make([]logRecord, len(c.records))
	copy(records, c.records)
	return records
}

// GetRecordsByLevel returns the captured records at exactly the given level.
func (c *logCapture) GetRecordsByLevel(level slog.Level) []logRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	var filtered []logRecord
	for _, r := range c.records {
		if r.Level == level {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// ContainsMessage reports whether any captured record contains message.
func (c *logCapture) ContainsMessage(message string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.records {
		if strings.Contains(r.Message, message) {
			return true
		}
	}
	return false
}

// newTestLogger returns a logger whose output the test can inspect.
func newTestLogger(t *testing.T) (*slog.Logger, *logCapture) {
	t.Helper()
	capture := &logCapture{}
	return slog.New(capture), capture
}
