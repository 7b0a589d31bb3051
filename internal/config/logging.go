package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// NewLogger builds a slog.Logger from the log settings. It returns the
// logger and a close function for the log file (a no-op when logging to
// stderr).
func (c LogConfig) NewLogger() (*slog.Logger, func() error, error) {
	var level slog.Level
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "", "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, nil, fmt.Errorf("config: unknown log level %q", c.Level)
	}

	var (
		w         io.Writer = os.Stderr
		closeFunc           = func() error { return nil }
	)
	if c.File != "" {
		f, err := os.OpenFile(c.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("config: open log file: %w", err)
		}
		w = f
		closeFunc = f.Close
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closeFunc, nil
}
