// Package logging builds the process-wide slog.Logger from configuration,
// with size-based rotation when a log file is configured.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/rickgao/outcome-exchange/internal/config"
)

// New creates a JSON logger at the configured level. With a file configured
// it writes to both stdout and the rotating file; otherwise stdout only.
func New(cfg config.LoggingConfig) *slog.Logger {
	var w io.Writer = os.Stdout

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err == nil {
			w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   true,
			})
		}
		// On MkdirAll failure fall through to stdout only.
	}

	opts := &slog.HandlerOptions{Level: Level(cfg.Level)}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Level maps a config string to a slog level, defaulting to info.
func Level(s string) slog.Level {
	switch s {
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
