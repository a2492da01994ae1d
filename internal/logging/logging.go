// Package logging builds the operational log sink. In stdio mode stdout
// carries the protocol stream, so logs go to a file or nowhere at all.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/arjuns-ti/slides-mcp-server/internal/config"
)

// New returns a logger for the given configuration and a closer for its
// backing file, if any. With logging disabled every record is discarded.
func New(cfg config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	if !cfg.Enabled {
		return slog.New(slog.DiscardHandler), nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
	}

	handler := slog.NewTextHandler(file, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})
	return slog.New(handler), file, nil
}

func parseLevel(level string) slog.Level {
	switch level {
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
