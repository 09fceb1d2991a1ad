// Package logging builds the zerolog logger used across the catalogue:
// a human-friendly console writer on stderr plus an optional rotated file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
)

// Defaults for the rotated log file.
const (
	DefaultLevel      = "info"
	DefaultFileName   = "catalogue.log"
	DefaultMaxSizeMB  = 20
	DefaultMaxBackups = 5
	DefaultMaxAgeDays = 28
)

// Config controls logger construction.
type Config struct {
	Level string `mapstructure:"level"`

	// File enables the rotated log file under Dir.
	File bool   `mapstructure:"file"`
	Dir  string `mapstructure:"-"`

	// Console is the console destination; nil means os.Stderr.
	Console io.Writer `mapstructure:"-"`
}

// New returns a logger for cfg. An unknown level falls back to info.
// The returned closer releases the log file, if any.
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}

	out := cfg.Console
	if out == nil {
		out = os.Stderr
	}
	writers := []io.Writer{
		zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = out
			w.TimeFormat = time.Kitchen
		}),
	}

	var closer io.Closer = nopCloser{}
	if cfg.File {
		if cfg.Dir == "" {
			return zerolog.Nop(), nil, fmt.Errorf("log file enabled without a directory")
		}
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("create log dir: %w", err)
		}
		lj := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, DefaultFileName),
			MaxSize:    DefaultMaxSizeMB,
			MaxBackups: DefaultMaxBackups,
			MaxAge:     DefaultMaxAgeDays,
			Compress:   true,
		}
		writers = append(writers, lj)
		closer = lj
	}

	logger := zerolog.New(io.MultiWriter(writers...)).Level(lvl).With().Timestamp().Logger()
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
