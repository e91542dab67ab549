// Package logging provides the console logger behind ports.Logger and a tee
// that fans entries out to several loggers, such as the terminal and a
// per-run log file.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/uplift/internal/ports"
)

// ConsoleLogger logs structured messages to the console.
type ConsoleLogger struct {
	mu           *sync.Mutex
	out          io.Writer
	level        ports.Level
	fields       []ports.Field
	jsonFormat   bool
	includeTime  bool
	includeLevel bool
	now          func() time.Time
}

// ConsoleLoggerOption configures the console logger.
type ConsoleLoggerOption func(*ConsoleLogger)

// WithOutput sets the output writer (default: os.Stderr).
func WithOutput(w io.Writer) ConsoleLoggerOption {
	return func(l *ConsoleLogger) {
		l.out = w
	}
}

// WithLevel sets the minimum log level (default: Info).
func WithLevel(level ports.Level) ConsoleLoggerOption {
	return func(l *ConsoleLogger) {
		l.level = level
	}
}

// WithJSONFormat enables JSON output format.
func WithJSONFormat(enabled bool) ConsoleLoggerOption {
	return func(l *ConsoleLogger) {
		l.jsonFormat = enabled
	}
}

// WithTimestamp includes timestamp in log entries.
func WithTimestamp(enabled bool) ConsoleLoggerOption {
	return func(l *ConsoleLogger) {
		l.includeTime = enabled
	}
}

// WithLevelLabel includes level label in log entries.
func WithLevelLabel(enabled bool) ConsoleLoggerOption {
	return func(l *ConsoleLogger) {
		l.includeLevel = enabled
	}
}

// WithClock sets the time source for timestamps.
func WithClock(now func() time.Time) ConsoleLoggerOption {
	return func(l *ConsoleLogger) {
		l.now = now
	}
}

// NewConsoleLogger creates a new console logger.
func NewConsoleLogger(opts ...ConsoleLoggerOption) *ConsoleLogger {
	l := &ConsoleLogger{
		mu:           &sync.Mutex{},
		out:          os.Stderr,
		level:        ports.LevelInfo,
		includeTime:  true,
		includeLevel: true,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// ParseLevel converts a configured level name to a ports.Level. An empty
// name means info.
func ParseLevel(name string) (ports.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return ports.LevelDebug, nil
	case "", "info":
		return ports.LevelInfo, nil
	case "warn", "warning":
		return ports.LevelWarn, nil
	case "error":
		return ports.LevelError, nil
	default:
		return ports.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// Debug logs a debug message.
func (l *ConsoleLogger) Debug(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, ports.LevelDebug, msg, fields)
}

// Info logs an informational message.
func (l *ConsoleLogger) Info(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, ports.LevelInfo, msg, fields)
}

// Warn logs a warning message.
func (l *ConsoleLogger) Warn(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, ports.LevelWarn, msg, fields)
}

// Error logs an error message.
func (l *ConsoleLogger) Error(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, ports.LevelError, msg, fields)
}

// With returns a logger that adds fields to every entry. It shares the
// output and its lock with l but has its own level.
func (l *ConsoleLogger) With(fields ...ports.Field) ports.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	child := *l
	child.fields = append(append(make([]ports.Field, 0, len(l.fields)+len(fields)), l.fields...), fields...)
	return &child
}

// Level returns the minimum log level.
func (l *ConsoleLogger) Level() ports.Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetLevel sets the minimum log level.
func (l *ConsoleLogger) SetLevel(level ports.Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *ConsoleLogger) log(_ context.Context, level ports.Level, msg string, fields []ports.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	all := make([]ports.Field, 0, len(l.fields)+len(fields))
	all = append(append(all, l.fields...), fields...)

	if l.jsonFormat {
		l.writeJSON(level, msg, all)
	} else {
		l.writeText(level, msg, all)
	}
}

// value turns errors and Stringers such as step IDs and risks into text.
func value(v interface{}) interface{} {
	switch x := v.(type) {
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	default:
		return v
	}
}

func (l *ConsoleLogger) writeJSON(level ports.Level, msg string, fields []ports.Field) {
	entry := make(map[string]interface{}, len(fields)+3)

	if l.includeTime {
		entry["time"] = l.now().UTC().Format(time.RFC3339)
	}
	if l.includeLevel {
		entry["level"] = level.String()
	}
	entry["msg"] = msg

	for _, f := range fields {
		entry[f.Key] = value(f.Value)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		_, _ = fmt.Fprintf(l.out, "{\"level\":%q,\"msg\":%q,\"log_error\":%q}\n", level.String(), msg, err.Error())
		return
	}

	_, _ = fmt.Fprintln(l.out, string(data))
}

func (l *ConsoleLogger) writeText(level ports.Level, msg string, fields []ports.Field) {
	var b strings.Builder

	if l.includeTime {
		b.WriteString(l.now().Format("15:04:05"))
		b.WriteByte(' ')
	}
	if l.includeLevel {
		fmt.Fprintf(&b, "[%s] ", level.String())
	}
	b.WriteString(msg)

	for _, f := range fields {
		s := fmt.Sprint(value(f.Value))
		if strings.ContainsAny(s, " \t\n\"=") {
			s = fmt.Sprintf("%q", s)
		}
		fmt.Fprintf(&b, " %s=%s", f.Key, s)
	}

	_, _ = fmt.Fprintln(l.out, b.String())
}

// Ensure ConsoleLogger implements Logger.
var _ ports.Logger = (*ConsoleLogger)(nil)
