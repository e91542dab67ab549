package logging

import (
	"context"

	"github.com/felixgeelhaar/uplift/internal/ports"
)

// TeeLogger writes every entry to each of its loggers, which filter by
// their own levels.
type TeeLogger struct {
	loggers []ports.Logger
}

var _ ports.Logger = (*TeeLogger)(nil)

// Tee combines loggers. Nil loggers are ignored; a single logger is
// returned as is.
func Tee(loggers ...ports.Logger) ports.Logger {
	var out []ports.Logger
	for _, l := range loggers {
		if l != nil {
			out = append(out, l)
		}
	}
	switch len(out) {
	case 0:
		return ports.Discard
	case 1:
		return out[0]
	default:
		return &TeeLogger{loggers: out}
	}
}

// Debug implements ports.Logger.
func (t *TeeLogger) Debug(ctx context.Context, msg string, fields ...ports.Field) {
	for _, l := range t.loggers {
		l.Debug(ctx, msg, fields...)
	}
}

// Info implements ports.Logger.
func (t *TeeLogger) Info(ctx context.Context, msg string, fields ...ports.Field) {
	for _, l := range t.loggers {
		l.Info(ctx, msg, fields...)
	}
}

// Warn implements ports.Logger.
func (t *TeeLogger) Warn(ctx context.Context, msg string, fields ...ports.Field) {
	for _, l := range t.loggers {
		l.Warn(ctx, msg, fields...)
	}
}

// Error implements ports.Logger.
func (t *TeeLogger) Error(ctx context.Context, msg string, fields ...ports.Field) {
	for _, l := range t.loggers {
		l.Error(ctx, msg, fields...)
	}
}

// With implements ports.Logger.
func (t *TeeLogger) With(fields ...ports.Field) ports.Logger {
	out := make([]ports.Logger, len(t.loggers))
	for i, l := range t.loggers {
		out[i] = l.With(fields...)
	}
	return &TeeLogger{loggers: out}
}

// Level returns the lowest level of any logger.
func (t *TeeLogger) Level() ports.Level {
	lowest := ports.LevelError
	for _, l := range t.loggers {
		if lv := l.Level(); lv < lowest {
			lowest = lv
		}
	}
	return lowest
}

// SetLevel sets the level of every logger.
func (t *TeeLogger) SetLevel(level ports.Level) {
	for _, l := range t.loggers {
		l.SetLevel(level)
	}
}
