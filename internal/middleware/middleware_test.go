package middleware

import (
	"context"
	"sync"

	"github.com/lightsource/sessions-api/internal/observability"
)

// recordingLogger captures log entries for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level   string
	message string
	fields  []observability.Field
}

func (l *recordingLogger) record(level, msg string, fields []observability.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, message: msg, fields: fields})
}

func (l *recordingLogger) Debug(msg string, fields ...observability.Field) {
	l.record("debug", msg, fields)
}

func (l *recordingLogger) Info(msg string, fields ...observability.Field) {
	l.record("info", msg, fields)
}

func (l *recordingLogger) Warn(msg string, fields ...observability.Field) {
	l.record("warn", msg, fields)
}

func (l *recordingLogger) Error(msg string, fields ...observability.Field) {
	l.record("error", msg, fields)
}

func (l *recordingLogger) Fatal(msg string, fields ...observability.Field) {
	l.record("fatal", msg, fields)
}

func (l *recordingLogger) With(fields ...observability.Field) observability.Logger {
	return l
}

func (l *recordingLogger) WithContext(ctx context.Context) observability.Logger {
	return l
}

func (l *recordingLogger) Sync() error {
	return nil
}

func (l *recordingLogger) byLevel(level string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []logEntry
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}
