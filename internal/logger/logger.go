package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New creates the service-wide slog.Logger. Output is JSON on stdout
// tagged with the service name; LOG_LEVEL (debug, info, warn, error)
// selects the minimum level, defaulting to info.
func New() *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("LOG_LEVEL")),
	})
	return slog.New(handler).With(slog.String("service", "orderdesk"))
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
