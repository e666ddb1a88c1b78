// Package logging sets up the daemon's structured logger: a rotating
// file writer plus an optional stderr tee, with the output format
// switchable between structured-JSON (default) and human-readable text
// via the GOFER_LOG_TEXT environment variable.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Config controls log setup.
type Config struct {
	Level         string // debug, info, warn, error
	FilePath      string // empty disables file logging
	MaxSizeMB     int
	MaxFiles      int
	WriteToStderr bool
}

// DefaultConfig returns the daemon's usual logging setup.
func DefaultConfig(filePath string) Config {
	return Config{
		Level:         "info",
		FilePath:      filePath,
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// Setup builds a slog.Logger per cfg and returns a cleanup func that flushes
// and closes the rotating file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var writer io.WriteCloser
	var err error
	cleanup := func() {}

	if cfg.FilePath != "" {
		writer, err = NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { _ = writer.Close() }
	}

	var output io.Writer
	switch {
	case writer != nil && cfg.WriteToStderr:
		output = io.MultiWriter(writer, os.Stderr)
	case writer != nil:
		output = writer
	default:
		output = os.Stderr
	}

	level := ParseLevel(cfg.Level)
	handler := newHandler(output, level)
	logger := slog.New(handler)
	return logger, cleanup, nil
}

// SetupDefault configures the package-default logger and installs it
// with slog.SetDefault as a convenience for callers that don't need a
// distinct logger instance.
func SetupDefault(filePath string) (func(), error) {
	logger, cleanup, err := Setup(DefaultConfig(filePath))
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cleanup, nil
}

// newHandler picks JSON or text based on GOFER_LOG_TEXT and, for text
// mode, whether stderr is attached to a terminal, via go-isatty, rather
// than always forcing color/text.
func newHandler(w io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if os.Getenv("GOFER_LOG_TEXT") == "1" || isatty.IsTerminal(os.Stderr.Fd()) {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// ParseLevel converts a string level to slog.Level, defaulting to Info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
