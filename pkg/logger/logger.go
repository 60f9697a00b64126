// Package logger holds the process-wide structured logger used by the pdfdesk packages.
//
// Nothing is logged until SetLogger is called; the CLI installs a slog text handler, library
// users can hand in any *slog.Logger.
package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

var log = slog.New(discardHandler{})

// SetLogger replaces the package logger. A nil logger is ignored.
func SetLogger(l *slog.Logger) {
	if l != nil {
		log = l
	}
}

// Get returns the current package logger.
func Get() *slog.Logger {
	return log
}

// New builds a text logger writing to w at the given level ("debug", "info", "warn", "error").
func New(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Debug logs a message at debug level
func Debug(msg string, keyvals ...any) {
	log.Debug(msg, keyvals...)
}

// Info logs a message at info level
func Info(msg string, keyvals ...any) {
	log.Info(msg, keyvals...)
}

// Warn logs a message at warn level
func Warn(msg string, keyvals ...any) {
	log.Warn(msg, keyvals...)
}

// Error logs a message at error level
func Error(msg string, keyvals ...any) {
	log.Error(msg, keyvals...)
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
