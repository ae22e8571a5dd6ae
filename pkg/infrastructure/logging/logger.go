package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger writes one JSON object per line with service and action fields
type Logger struct {
	service string
	slog    *slog.Logger
}

// Options configures a Logger
type Options struct {
	Service string
	Level   string // debug, info, warn, error
	Output  io.Writer
}

// New creates a JSON logger
func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// only the handler's own top-level keys are renamed
			if len(groups) > 0 {
				return a
			}
			switch {
			case a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime:
				return slog.String("timestamp", a.Value.Time().UTC().Format(time.RFC3339Nano))
			case a.Key == slog.MessageKey:
				a.Key = "message"
			}
			return a
		},
	})
	return &Logger{
		service: opts.Service,
		slog:    slog.New(handler).With(slog.String("service", opts.Service), slog.String("hostname", hostname())),
	}
}

// Discard returns a logger that writes nothing
func Discard() *Logger {
	return New(Options{Service: "discard", Level: "error", Output: io.Discard})
}

// ParseLevel maps a level name to a slog level; unknown names mean info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Fields are extra key/values attached to an entry
type Fields map[string]any

func (l *Logger) log(level slog.Level, action, msg string, fields Fields, err error) {
	if l == nil || !l.slog.Enabled(context.Background(), level) {
		return
	}
	attrs := make([]any, 0, len(fields)+2)
	attrs = append(attrs, slog.String("action", action))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	if err != nil {
		attrs = append(attrs, slog.Group("error", slog.String("msg", err.Error())))
	}
	l.slog.Log(context.Background(), level, msg, attrs...)
}

func (l *Logger) Debug(action, msg string, fields Fields) { l.log(slog.LevelDebug, action, msg, fields, nil) }
func (l *Logger) Info(action, msg string, fields Fields)  { l.log(slog.LevelInfo, action, msg, fields, nil) }
func (l *Logger) Warn(action, msg string, fields Fields)  { l.log(slog.LevelWarn, action, msg, fields, nil) }
func (l *Logger) Error(action string, err error, fields Fields) {
	l.log(slog.LevelError, action, action, fields, err)
}

func hostname() string { h, _ := os.Hostname(); return h }
