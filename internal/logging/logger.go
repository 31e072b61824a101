// Package logging wraps zerolog with a mutable correlation id so that all
// lines emitted during one scheduler execution can be traced together.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Field mutates a zerolog event. Fields are applied in-order; if the same
// key is set twice the later one wins.
type Field func(e *zerolog.Event)

func String(k, v string) Field  { return func(e *zerolog.Event) { e.Str(k, v) } }
func Int(k string, v int) Field { return func(e *zerolog.Event) { e.Int(k, v) } }
func Int64(k string, v int64) Field {
	return func(e *zerolog.Event) { e.Int64(k, v) }
}
func Bool(k string, v bool) Field { return func(e *zerolog.Event) { e.Bool(k, v) } }
func Duration(k string, v time.Duration) Field {
	return func(e *zerolog.Event) { e.Dur(k, v) }
}
func Time(k string, v time.Time) Field { return func(e *zerolog.Event) { e.Time(k, v) } }
func Any(k string, v any) Field        { return func(e *zerolog.Event) { e.Interface(k, v) } }
func Err(err error) Field {
	return func(e *zerolog.Event) {
		if err != nil {
			e.Err(err)
		}
	}
}

// Logger is a structured logger. The zero value is unusable; construct with
// New or Nop. Safe for concurrent use.
type Logger struct {
	base zerolog.Logger

	mu            sync.Mutex
	correlationID string
}

// New creates a logger writing JSON lines to w at the given level.
func New(w io.Writer, level string) *Logger {
	zerolog.ErrorFieldName = "err"
	zl := zerolog.New(w).Level(parseLevel(level, zerolog.InfoLevel)).With().Timestamp().Logger()
	return &Logger{base: zl}
}

// Nop returns a logger that never writes anything.
func Nop() *Logger {
	return &Logger{base: zerolog.Nop()}
}

// SetCorrelationID attaches id to every subsequent line until cleared.
func (l *Logger) SetCorrelationID(id string) {
	l.mu.Lock()
	l.correlationID = id
	l.mu.Unlock()
}

// ClearCorrelationID removes the active correlation id.
func (l *Logger) ClearCorrelationID() {
	l.mu.Lock()
	l.correlationID = ""
	l.mu.Unlock()
}

// CorrelationID returns the active correlation id, or "".
func (l *Logger) CorrelationID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.correlationID
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(zerolog.DebugLevel, msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(zerolog.InfoLevel, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(zerolog.WarnLevel, msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.log(zerolog.ErrorLevel, msg, fields...) }

func (l *Logger) log(level zerolog.Level, msg string, fields ...Field) {
	e := l.base.WithLevel(level)
	if e == nil {
		return
	}
	if id := l.CorrelationID(); id != "" {
		e.Str("execution_id", id)
	}
	for _, f := range fields {
		if f != nil {
			f(e)
		}
	}
	e.Msg(msg)
}

// Fallback writes directly to stderr, bypassing the structured pipeline.
// Used at call sites where the logger itself may be the failing collaborator.
func Fallback(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func parseLevel(s string, def zerolog.Level) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return def
	}
}
