package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	LevelCritical = slog.Level(12)

	// levelOff is above every level a caller can log at.
	levelOff = LevelCritical + 4
)

type Logger interface {
	Debug(message string, args ...any)
	Info(message string, args ...any)
	Warn(message string, args ...any)
	Error(message string, args ...any)
	Critical(message string, args ...any)
	// BusinessError logs an expected per-repository failure (bad upstream,
	// rejected push) at warn level. A nil err logs nothing.
	BusinessError(message string, err error, args ...any)
	// InternalError logs a store, bus or filesystem failure at error level.
	InternalError(message string, err error, args ...any)
	With(args ...any) Logger
}

type Options struct {
	Level   slog.Level
	Format  string
	Service string
}

type slogLogger struct {
	base *slog.Logger
}

// NewFromEnv reads ENV, LOG_LEVEL and LOG_FORMAT. Records go to stderr so the
// scan summary on stdout stays machine readable.
func NewFromEnv(service string) Logger {
	env := normalizeValue(os.Getenv("ENV"))
	return New(os.Stderr, Options{
		Level:   ParseLevel(os.Getenv("LOG_LEVEL"), env),
		Format:  parseFormat(os.Getenv("LOG_FORMAT"), env),
		Service: service,
	})
}

func New(output io.Writer, opts Options) Logger {
	handlerOpts := &slog.HandlerOptions{
		Level:       opts.Level,
		ReplaceAttr: replaceAttr,
	}

	var handler slog.Handler
	if opts.Format == "json" {
		handler = slog.NewJSONHandler(output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(output, handlerOpts)
	}

	base := slog.New(handler)
	if opts.Service != "" {
		base = base.With("service", opts.Service)
	}
	return &slogLogger{base: base}
}

func Discard() Logger {
	return New(io.Discard, Options{Level: levelOff})
}

func (l *slogLogger) Debug(message string, args ...any) {
	l.base.Debug(message, args...)
}

func (l *slogLogger) Info(message string, args ...any) {
	l.base.Info(message, args...)
}

func (l *slogLogger) Warn(message string, args ...any) {
	l.base.Warn(message, args...)
}

func (l *slogLogger) Error(message string, args ...any) {
	l.base.Error(message, args...)
}

func (l *slogLogger) Critical(message string, args ...any) {
	l.base.Log(context.Background(), LevelCritical, message, args...)
}

func (l *slogLogger) BusinessError(message string, err error, args ...any) {
	l.logErr(slog.LevelWarn, "business", message, err, args)
}

func (l *slogLogger) InternalError(message string, err error, args ...any) {
	l.logErr(slog.LevelError, "internal", message, err, args)
}

func (l *slogLogger) logErr(level slog.Level, kind, message string, err error, args []any) {
	if err == nil {
		return
	}
	attrs := make([]any, 0, len(args)+4)
	attrs = append(attrs, "err", err.Error(), "error_kind", kind)
	attrs = append(attrs, args...)
	l.base.Log(context.Background(), level, message, attrs...)
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{base: l.base.With(args...)}
}

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown or empty values
// give debug in development and info elsewhere.
func ParseLevel(value string, env string) slog.Level {
	switch normalizeValue(value) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "critical", "fatal":
		return LevelCritical
	}
	if env == "development" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// parseFormat defaults to json outside development, where records are shipped
// to a collector rather than read in a terminal.
func parseFormat(value string, env string) string {
	switch format := normalizeValue(value); format {
	case "json", "text":
		return format
	}
	if env == "" || env == "development" {
		return "text"
	}
	return "json"
}

func normalizeValue(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func replaceAttr(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key != slog.LevelKey {
		return attr
	}
	if level, ok := attr.Value.Any().(slog.Level); ok && level == LevelCritical {
		attr.Value = slog.StringValue("CRITICAL")
	}
	return attr
}
