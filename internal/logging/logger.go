// Package logging provides structured logging for gsp on top of log/slog,
// with component-scoped child loggers so each pipeline stage (parser,
// build, loader, engine, server) tags its own records.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the structured logging interface used across gsp.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any)
	Info(ctx context.Context, msg string, fields ...any)
	Warn(ctx context.Context, err error, msg string, fields ...any)
	Error(ctx context.Context, err error, msg string, fields ...any)

	With(fields ...any) Logger
	WithComponent(component string) Logger
}

// Config holds logger construction options.
type Config struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "text" or "json"
	Output io.Writer
}

// DefaultConfig returns the default logger configuration: info-level text
// output on stderr.
func DefaultConfig() *Config {
	return &Config{Level: "info", Format: "text", Output: os.Stderr}
}

type gspLogger struct {
	logger *slog.Logger
}

// NewLogger creates a structured logger from config.
func NewLogger(config *Config) Logger {
	if config == nil {
		config = DefaultConfig()
	}
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: parseLevel(config.Level)}

	var handler slog.Handler
	if strings.EqualFold(config.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return &gspLogger{logger: slog.New(handler)}
}

// NewTestLogger returns a logger that discards all output, for tests.
func NewTestLogger() Logger {
	return NewLogger(&Config{Level: "error", Output: io.Discard})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *gspLogger) Debug(ctx context.Context, msg string, fields ...any) {
	l.logger.DebugContext(ctx, msg, fields...)
}

func (l *gspLogger) Info(ctx context.Context, msg string, fields ...any) {
	l.logger.InfoContext(ctx, msg, fields...)
}

func (l *gspLogger) Warn(ctx context.Context, err error, msg string, fields ...any) {
	l.logger.WarnContext(ctx, msg, withError(err, fields)...)
}

func (l *gspLogger) Error(ctx context.Context, err error, msg string, fields ...any) {
	l.logger.ErrorContext(ctx, msg, withError(err, fields)...)
}

func (l *gspLogger) With(fields ...any) Logger {
	return &gspLogger{logger: l.logger.With(fields...)}
}

func (l *gspLogger) WithComponent(component string) Logger {
	return &gspLogger{logger: l.logger.With("component", component)}
}

func withError(err error, fields []any) []any {
	if err == nil {
		return fields
	}
	out := make([]any, 0, len(fields)+2)
	out = append(out, fields...)
	out = append(out, "error", err.Error())
	return out
}
