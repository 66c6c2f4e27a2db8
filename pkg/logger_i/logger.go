package logger_i

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/akolanti/LayoutAPI/internal/config"
)

type Logger struct {
	inner *slog.Logger
}

var level = new(slog.LevelVar)

func Init(cfg config.LogConfig) {
	SetLevel(cfg.Level)
	options := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, options)
	} else {
		handler = slog.NewTextHandler(os.Stdout, options)
	}
	slog.SetDefault(slog.New(handler))
}

// SetLevel changes the level of every logger created through this package. Unknown names mean info.
func SetLevel(name string) {
	switch strings.ToLower(name) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
}

func NewLogger(section string) *Logger {
	return &Logger{
		inner: slog.Default().With("component", section),
	}
}

func (l *Logger) Info(msg string, args ...any) {
	l.inner.Info(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.log(slog.LevelError, msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, msg, args...)
}

func (l *Logger) log(lvl slog.Level, msg string, args ...any) {
	if !l.inner.Enabled(context.Background(), lvl) {
		return
	}
	l.inner.Log(context.Background(), lvl, msg, args...)
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		inner: l.inner.With(args...),
	}
}

// WithTrace attaches the request trace id carried by ctx, if any.
func (l *Logger) WithTrace(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	if trace, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok && trace != "" {
		return l.With("traceId", trace)
	}
	return l
}
