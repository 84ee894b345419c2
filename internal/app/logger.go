package app

import (
	"io"
	"log/slog"
)

// newLogger builds the run's logger without touching slog's default. An
// unrecognised level falls back to info and is reported through the new
// logger itself.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	levelErr := level.UnmarshalText([]byte(levelStr))
	if levelErr != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch formatStr {
	case "json":
		handler = slog.NewJSONHandler(outW, opts)
	default:
		handler = slog.NewTextHandler(outW, opts)
	}

	logger := slog.New(handler)
	if levelErr != nil {
		logger.Warn("Unknown log level, using info.", "log_level", levelStr)
	}
	return logger
}
