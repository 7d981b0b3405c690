// Package logging builds the toolkit's slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Environment variables read by FromEnv.
const (
	EnvLogLevel  = "GHASTOOLKIT_LOG_LEVEL"
	EnvLogFormat = "GHASTOOLKIT_LOG_FORMAT"
)

// Options configures a logger.
type Options struct {
	// Level is debug, info, warn or error (default: info).
	Level string

	// Format is text or json (default: text).
	Format string

	// Writer receives log records (default: os.Stderr).
	Writer io.Writer
}

// New creates a logger from opts.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
	}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler)
}

// FromEnv fills unset fields of opts from GHASTOOLKIT_LOG_LEVEL and
// GHASTOOLKIT_LOG_FORMAT.
func FromEnv(opts Options) Options {
	if opts.Level == "" {
		opts.Level = os.Getenv(EnvLogLevel)
	}
	if opts.Format == "" {
		opts.Format = os.Getenv(EnvLogFormat)
	}
	return opts
}

// ParseLevel maps a level name to a slog.Level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
