package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. Text output to stdout keeps development
// readable; swap the handler for JSON when shipping to a log pipeline.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
