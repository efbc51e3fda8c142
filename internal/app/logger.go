package app

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/easygit/easy-git/internal/failure"
)

const componentName = "easy-git"

// logLevels maps accepted log_level values to slog levels. Config.Validate
// checks against the same table.
var logLevels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

var logFormats = map[string]func(io.Writer, *slog.HandlerOptions) slog.Handler{
	"text": func(w io.Writer, opts *slog.HandlerOptions) slog.Handler { return slog.NewTextHandler(w, opts) },
	"json": func(w io.Writer, opts *slog.HandlerOptions) slog.Handler { return slog.NewJSONHandler(w, opts) },
}

// secretAttrs never reach the log with their value.
var secretAttrs = map[string]struct{}{
	"token":         {},
	"access_token":  {},
	"client_secret": {},
}

// NewLogger builds the stderr logger. Stdout is left for command output.
// Supported levels: debug, info, warn, error.
// Supported formats: text (default), json.
func NewLogger(level, format string) (*slog.Logger, error) {
	return NewLoggerTo(os.Stderr, level, format)
}

// NewLoggerTo is NewLogger with an explicit destination.
func NewLoggerTo(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, ok := logLevels[normalizeOption(level, defaultLogLevel)]
	if !ok {
		return nil, failure.New(failure.KindConfiguration, "unsupported log level %q", level)
	}
	newHandler, ok := logFormats[normalizeOption(format, defaultLogFormat)]
	if !ok {
		return nil, failure.New(failure.KindConfiguration, "unsupported log format %q", format)
	}

	handler := newHandler(w, &slog.HandlerOptions{Level: lvl, ReplaceAttr: replaceAttr})
	return slog.New(handler).With("component", componentName), nil
}

// replaceAttr masks secrets and expands errors into their message and
// failure kind, so a log line says which class of failure it reports.
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if _, ok := secretAttrs[a.Key]; ok && a.Value.String() != "" {
		return slog.String(a.Key, "[redacted]")
	}
	if a.Value.Kind() != slog.KindAny {
		return a
	}
	if err, ok := a.Value.Any().(error); ok && err != nil {
		return slog.Group(a.Key,
			slog.String("msg", err.Error()),
			slog.String("kind", string(failure.KindOf(err))),
		)
	}
	return a
}

func normalizeOption(value, fallback string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return fallback
	}
	return v
}
