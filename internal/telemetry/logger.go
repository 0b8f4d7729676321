package telemetry

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns the JSON logger used by long running services.
func NewLogger() *slog.Logger {
	return NewLoggerTo(os.Stdout, "json", "info")
}

// NewLoggerTo builds a logger writing to w. format is "json" or "text"; unknown
// levels fall back to info.
func NewLoggerTo(w io.Writer, format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

// Discard is a logger for tests and callers that did not configure one.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
