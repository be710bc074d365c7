// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/juju/lumberjack/v2"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/appconfig"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/paths"
)

// Setup installs the default slog logger according to config: level from
// logging.level, and when file logging is enabled a size-rotated file under
// the logs directory alongside stderr.
func Setup(cfg appconfig.LoggingConfig) error {
	var w io.Writer = os.Stderr
	if cfg.FileLogging {
		dir, err := paths.LogsDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create logs dir: %w", err)
		}
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   filepath.Join(dir, "revssh.log"),
			MaxSize:    cfg.MaxFileSizeMB,
			MaxBackups: cfg.MaxFiles,
		})
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level(cfg.Level)})
	slog.SetDefault(slog.New(handler))
	return nil
}

// level maps the config value onto slog levels. "trace" has no slog
// equivalent and maps to debug.
func level(s string) slog.Level {
	switch s {
	case "trace", "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
