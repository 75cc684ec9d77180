// Package logging builds the process-wide slog.Logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger output.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text, tint
	// File, when set, receives a copy of every record and is rotated by size.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// New constructs a logger writing to stdout and, optionally, a rotating file.
// The returned closer flushes and closes the file; it is never nil.
func New(cfg Config) (*slog.Logger, io.Closer) {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter is New with a caller-supplied console writer.
func NewWithWriter(cfg Config, console io.Writer) (*slog.Logger, io.Closer) {
	level := ParseLevel(cfg.Level)

	var closer io.Closer = nopCloser{}
	out := console
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		closer = rotator
		// Colour codes stay out of the file.
		if strings.EqualFold(cfg.Format, "tint") {
			return slog.New(fanout{
				tint.NewHandler(console, &tint.Options{Level: level, TimeFormat: time.Kitchen}),
				slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: level}),
			}), closer
		}
		out = io.MultiWriter(console, rotator)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	case "tint":
		handler = tint.NewHandler(out, &tint.Options{Level: level, TimeFormat: time.Kitchen})
	default:
		handler = slog.NewJSONHandler(out, opts)
	}
	return slog.New(handler), closer
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
