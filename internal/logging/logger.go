// Package logging provides the leveled, field-based logger used across the service.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
)

// Level is a logging severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Field is a single structured key/value attached to a log line.
type Field struct {
	attrs []slog.Attr
}

// WithField creates a Field from a single key/value pair.
func WithField(key string, value interface{}) Field {
	return Field{attrs: []slog.Attr{slog.Any(key, value)}}
}

// WithFields creates a Field from a map. Keys are emitted in sorted order.
func WithFields(fields map[string]interface{}) Field {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	return Field{attrs: attrs}
}

// Logger writes JSON log lines at or above its level.
type Logger struct {
	level Level
	slog  *slog.Logger
}

// New creates a logger writing JSON to stderr.
func New(level Level) *Logger {
	return NewWithWriter(level, os.Stderr)
}

// NewWithWriter creates a logger writing JSON to w.
func NewWithWriter(level Level, w io.Writer) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level.slogLevel()})
	return &Logger{level: level, slog: slog.New(handler)}
}

// Slog exposes the underlying structured logger for libraries that want one.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.log(LevelError, msg, fields) }

func (l *Logger) log(level Level, msg string, fields []Field) {
	if l == nil || level < l.level {
		return
	}
	var attrs []slog.Attr
	for _, f := range fields {
		attrs = append(attrs, f.attrs...)
	}
	l.slog.LogAttrs(context.Background(), level.slogLevel(), msg, attrs...)
}
