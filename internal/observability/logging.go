// Package observability provides the process-wide structured logger and
// Prometheus metrics shared by every component.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// sensitiveKeys are attribute names whose values never reach the log
// stream verbatim.
var sensitiveKeys = map[string]bool{
	"api_key":       true,
	"apikey":        true,
	"authorization": true,
	"password":      true,
	"secret":        true,
	"token":         true,
}

// Logger wraps slog with attribute redaction and component scoping.
type Logger struct {
	s *slog.Logger
}

// Options configures a root logger.
type Options struct {
	Level  slog.Level
	Format string // "json" or "text"
	Output io.Writer
}

// NewLogger builds the root logger. Diagnostic output goes to stderr by
// default so stdout stays clean for protocol traffic.
func NewLogger(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	hopts := &slog.HandlerOptions{
		Level:       opts.Level,
		ReplaceAttr: redactAttr,
	}
	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(out, hopts)
	} else {
		handler = slog.NewTextHandler(out, hopts)
	}
	return &Logger{s: slog.New(handler)}
}

// NewNopLogger discards everything. Used as the default before wiring and
// in tests.
func NewNopLogger() *Logger {
	return &Logger{s: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func redactAttr(groups []string, a slog.Attr) slog.Attr {
	if sensitiveKeys[strings.ToLower(a.Key)] {
		a.Value = slog.StringValue("[redacted]")
	}
	return a
}

// Component returns a child logger tagged with the component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{s: l.s.With("component", name)}
}

// With returns a child logger carrying the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{s: l.s.With(args...)}
}

func (l *Logger) Debug(msg string, args ...any) { l.s.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.s.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.s.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.s.Error(msg, args...) }

// DebugContext logs with the request context attached.
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.s.DebugContext(ctx, msg, args...)
}

// ParseLevel maps a config string onto a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
