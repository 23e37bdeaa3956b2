package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/moolekkari/diggs-validator/internal/config"
)

// logFileName is the daily log file for this host.
func logFileName(now time.Time) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("diggs_validator_%s_%s.log", host, now.Format("20060102"))
}

// newLogger builds the logger described by cfg. The returned closer releases
// the log file, if one was opened.
func newLogger(cfg *config.Config, stderr io.Writer, fs afero.Fs, now time.Time) (*log.Logger, io.Closer, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}
	if cfg.Debug {
		level = log.DebugLevel
	}

	var formatter log.Formatter
	switch cfg.LogFormat {
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	default:
		formatter = log.TextFormatter
	}

	var (
		w      = stderr
		closer io.Closer
	)
	if cfg.LogDir != "" {
		if err := fs.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := fs.OpenFile(filepath.Join(cfg.LogDir, logFileName(now)), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = io.MultiWriter(stderr, file)
		closer = file
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		Prefix:          config.AppName,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	return logger, closer, nil
}
