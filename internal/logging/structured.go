// Package logging provides structured JSON logging for medscribe components.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event represents a structured log event
type Event struct {
	Timestamp string         `json:"ts"`
	Level     Level          `json:"level"`
	Component string         `json:"component"`
	Event     string         `json:"event"`
	User      string         `json:"user,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Duration  int64          `json:"duration_ms,omitempty"`
	Error     string         `json:"error,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

var (
	out     io.Writer = os.Stderr
	outMu   sync.Mutex
	enabled bool
)

// Enable turns event emission on or off globally.
// Disabled by default so TUI output is not interleaved with JSON lines.
func Enable(on bool) {
	outMu.Lock()
	defer outMu.Unlock()
	enabled = on
}

// SetOutput redirects log output (for testing).
func SetOutput(w io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	out = w
}

// Logger provides structured logging for one component
type Logger struct {
	component string
	user      string
}

// New creates a new logger for a component
func New(component string) *Logger {
	return &Logger{component: component}
}

// WithUser sets the acting username on emitted events
func (l *Logger) WithUser(user string) *Logger {
	return &Logger{component: l.component, user: user}
}

func (l *Logger) log(level Level, event, requestID string, extra map[string]any, err error) {
	outMu.Lock()
	defer outMu.Unlock()
	if !enabled {
		return
	}

	e := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level,
		Component: l.component,
		Event:     event,
		User:      l.user,
		RequestID: requestID,
		Extra:     extra,
	}
	if err != nil {
		e.Error = err.Error()
	}

	data, _ := json.Marshal(e)
	fmt.Fprintln(out, string(data))
}

// Debug logs a debug event
func (l *Logger) Debug(event string, extra map[string]any) {
	l.log(LevelDebug, event, "", extra, nil)
}

// Info logs an info event
func (l *Logger) Info(event string, extra map[string]any) {
	l.log(LevelInfo, event, "", extra, nil)
}

// Warn logs a warning event
func (l *Logger) Warn(event string, extra map[string]any, err error) {
	l.log(LevelWarn, event, "", extra, err)
}

// Error logs an error event
func (l *Logger) Error(event string, extra map[string]any, err error) {
	l.log(LevelError, event, "", extra, err)
}

// Request logs one completed backend round-trip with its correlation id.
func (l *Logger) Request(event, requestID string, start time.Time, err error) {
	outMu.Lock()
	defer outMu.Unlock()
	if !enabled {
		return
	}

	e := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     LevelInfo,
		Component: l.component,
		Event:     event,
		User:      l.user,
		RequestID: requestID,
		Duration:  time.Since(start).Milliseconds(),
	}
	if err != nil {
		e.Level = LevelError
		e.Error = err.Error()
	}

	data, _ := json.Marshal(e)
	fmt.Fprintln(out, string(data))
}
