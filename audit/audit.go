package audit

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/goodleaf/clientcore/observe"
	"github.com/goodleaf/clientcore/redact"
)

// DefaultCapacity is the number of entries kept before the oldest are
// dropped.
const DefaultCapacity = 100

// Level is the severity of an entry.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

func (l Level) valid() bool {
	return l == LevelInfo || l == LevelWarn || l == LevelError
}

// Entry is one audit record. Message and Data are already scrubbed.
type Entry struct {
	Timestamp time.Time
	Message   string
	Level     Level
	Data      any
}

// timestampLayout is ISO-8601 with millisecond precision in UTC.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type exportedEntry struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
	Level     Level  `json:"level"`
}

// Logger is a fixed-capacity ring of audit entries.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Ordering: Entries and Export return oldest first.
type Logger struct {
	mu      sync.Mutex
	ring    []Entry
	head    int // index of the oldest entry
	size    int
	maxSize int

	redactor *redact.Redactor
	sink     observe.Logger
	now      func() time.Time
}

// Option configures a Logger.
type Option func(*Logger)

// WithCapacity overrides DefaultCapacity. Non-positive values are ignored.
func WithCapacity(n int) Option {
	return func(l *Logger) {
		if n > 0 {
			l.maxSize = n
		}
	}
}

// WithRedactor sets the scrubbing policy. Default: redact.NewDefault().
func WithRedactor(r *redact.Redactor) Option {
	return func(l *Logger) {
		if r != nil {
			l.redactor = r
		}
	}
}

// WithSink emits every entry to s as well.
func WithSink(s observe.Logger) Option {
	return func(l *Logger) {
		if s != nil {
			l.sink = s
		}
	}
}

// WithClock overrides the entry timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		l.now = now
	}
}

// New creates a Logger.
func New(opts ...Option) *Logger {
	l := &Logger{
		maxSize:  DefaultCapacity,
		redactor: redact.NewDefault(),
		sink:     observe.NopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.ring = make([]Entry, l.maxSize)
	return l
}

// Log scrubs message and data and records them. Unknown levels are
// recorded as info.
func (l *Logger) Log(ctx context.Context, level Level, message string, data any) {
	if !level.valid() {
		level = LevelInfo
	}
	entry := Entry{
		Timestamp: l.now(),
		Message:   l.redactor.Scrub(message),
		Level:     level,
	}
	if data != nil {
		entry.Data = l.redactor.ScrubDeep(data)
	}

	l.mu.Lock()
	l.push(entry)
	l.mu.Unlock()

	l.emit(ctx, entry)
}

// push appends e, overwriting the oldest entry when full. Callers hold l.mu.
func (l *Logger) push(e Entry) {
	if l.size < l.maxSize {
		l.ring[(l.head+l.size)%l.maxSize] = e
		l.size++
		return
	}
	l.ring[l.head] = e
	l.head = (l.head + 1) % l.maxSize
}

func (l *Logger) emit(ctx context.Context, e Entry) {
	fields := []observe.Field{observe.F("audit", true)}
	switch d := e.Data.(type) {
	case nil:
	case map[string]any:
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fields = append(fields, observe.F(k, d[k]))
		}
	default:
		fields = append(fields, observe.F("data", d))
	}

	switch e.Level {
	case LevelWarn:
		l.sink.Warn(ctx, e.Message, fields...)
	case LevelError:
		l.sink.Error(ctx, e.Message, fields...)
	default:
		l.sink.Info(ctx, e.Message, fields...)
	}
}

// Info records an info entry.
func (l *Logger) Info(ctx context.Context, message string, data any) {
	l.Log(ctx, LevelInfo, message, data)
}

// Warn records a warn entry.
func (l *Logger) Warn(ctx context.Context, message string, data any) {
	l.Log(ctx, LevelWarn, message, data)
}

// Error records an error entry.
func (l *Logger) Error(ctx context.Context, message string, data any) {
	l.Log(ctx, LevelError, message, data)
}

// Entries returns a copy of the stored entries, oldest first.
func (l *Logger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, l.size)
	for i := range l.size {
		out[i] = l.ring[(l.head+i)%l.maxSize]
	}
	return out
}

// Len returns the number of stored entries.
func (l *Logger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Export renders the entries as an indented JSON array of
// {timestamp, message, level}, oldest first.
func (l *Logger) Export() ([]byte, error) {
	entries := l.Entries()
	out := make([]exportedEntry, len(entries))
	for i, e := range entries {
		out[i] = exportedEntry{
			Timestamp: e.Timestamp.UTC().Format(timestampLayout),
			Message:   e.Message,
			Level:     e.Level,
		}
	}
	return json.MarshalIndent(out, "", "  ")
}

// Clear removes every entry.
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	clear(l.ring)
	l.head = 0
	l.size = 0
}
