// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration
type Config struct {
	Level string // trace, debug, info, warn, error
	JSON  bool
}

// New creates a logger writing to w
func New(w io.Writer, cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if !cfg.JSON {
		w = zerolog.ConsoleWriter{Out: w}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Setup installs the global logger and the default context logger
func Setup(cfg Config) zerolog.Logger {
	log.Logger = New(os.Stderr, cfg)

	defaultContextLogger := log.Logger.With().Bool("default_context_log", true).Caller().Logger()
	zerolog.DefaultContextLogger = &defaultContextLogger

	return log.Logger
}
