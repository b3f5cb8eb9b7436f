package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New builds the process-wide structured logger. Level is one of
// debug, info, warn, error; anything else falls back to info.
func New(level string) *slog.Logger {
	var logLevel slog.Level

	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}

// NewFor returns a logger tagged with the service name. Each binary calls
// this once and hands the result down through constructors.
func NewFor(service, level string) *slog.Logger {
	return New(level).With("service", service)
}
