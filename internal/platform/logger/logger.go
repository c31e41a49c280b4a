package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger writing to stdout. Level defaults to info;
// set WATCHTOWER_LOG_LEVEL=debug for verbose worker output.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("WATCHTOWER_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
