package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init installs the default slog logger. An explicit level wins over
// LOG_LEVEL; fallback applies when neither is set.
func Init(level string, fallback slog.Level) {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}

	logger := slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: ParseLevel(level, fallback),
		}),
	)
	slog.SetDefault(logger)
}

// ParseLevel maps the level names accepted on the command line and in the
// environment to slog levels.
func ParseLevel(level string, fallback slog.Level) slog.Level {
	switch strings.ToLower(level) {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "production", "prod":
		return slog.LevelError
	}
	return fallback
}

// Component returns the default logger tagged with a component name.
func Component(name string) *slog.Logger {
	return slog.Default().With("component", name)
}
