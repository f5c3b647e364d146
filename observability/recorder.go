package observability

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Entry is one message captured by a RecordingLogger.
type Entry struct {
	Level      LogLevel
	Template   string
	Args       []any
	Properties map[string]any
}

// Message renders the template by substituting {Property} holes with the
// arguments in order.
func (e Entry) Message() string {
	var b strings.Builder
	next := 0
	tmpl := e.Template
	for {
		open := strings.IndexByte(tmpl, '{')
		if open < 0 {
			b.WriteString(tmpl)
			break
		}
		end := strings.IndexByte(tmpl[open:], '}')
		if end < 0 {
			b.WriteString(tmpl)
			break
		}
		b.WriteString(tmpl[:open])
		if next < len(e.Args) {
			fmt.Fprint(&b, e.Args[next])
			next++
		} else {
			b.WriteString(tmpl[open : open+end+1])
		}
		tmpl = tmpl[open+end+1:]
	}
	return b.String()
}

// RecordingLogger keeps every message in memory. Operations that accept a
// Logger can be handed one to observe what they reported, and hosts use it
// to forward messages to an output window.
type RecordingLogger struct {
	store *recordStore
	props map[string]any
}

type recordStore struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecordingLogger creates an empty RecordingLogger.
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{store: &recordStore{}}
}

// Entries returns a copy of the captured entries.
func (r *RecordingLogger) Entries() []Entry {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]Entry, len(r.store.entries))
	copy(out, r.store.entries)
	return out
}

// Messages returns the rendered messages logged at level.
func (r *RecordingLogger) Messages(level LogLevel) []string {
	var out []string
	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e.Message())
		}
	}
	return out
}

func (r *RecordingLogger) record(level LogLevel, template string, args []any) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.entries = append(r.store.entries, Entry{
		Level:      level,
		Template:   template,
		Args:       args,
		Properties: r.props,
	})
}

func (r *RecordingLogger) Verbose(t string, args ...any) { r.record(VerboseLevel, t, args) }
func (r *RecordingLogger) VerboseContext(_ context.Context, t string, args ...any) {
	r.record(VerboseLevel, t, args)
}
func (r *RecordingLogger) Debug(t string, args ...any) { r.record(DebugLevel, t, args) }
func (r *RecordingLogger) DebugContext(_ context.Context, t string, args ...any) {
	r.record(DebugLevel, t, args)
}
func (r *RecordingLogger) Info(t string, args ...any) { r.record(InfoLevel, t, args) }
func (r *RecordingLogger) InfoContext(_ context.Context, t string, args ...any) {
	r.record(InfoLevel, t, args)
}
func (r *RecordingLogger) Warn(t string, args ...any) { r.record(WarnLevel, t, args) }
func (r *RecordingLogger) WarnContext(_ context.Context, t string, args ...any) {
	r.record(WarnLevel, t, args)
}
func (r *RecordingLogger) Error(t string, args ...any) { r.record(ErrorLevel, t, args) }
func (r *RecordingLogger) ErrorContext(_ context.Context, t string, args ...any) {
	r.record(ErrorLevel, t, args)
}

// ForContext returns a logger sharing the same store with one more property.
func (r *RecordingLogger) ForContext(key string, value any) Logger {
	props := make(map[string]any, len(r.props)+1)
	for k, v := range r.props {
		props[k] = v
	}
	props[key] = value
	return &RecordingLogger{store: r.store, props: props}
}
