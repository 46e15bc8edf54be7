package main

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// newLogger builds the run's structured logger. Diagnostics go to w
// (normally stderr); silent mode keeps only errors.
func newLogger(w io.Writer, cfg *Config) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix:          "wikibind",
		ReportTimestamp: false,
	})
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warn("unknown log level, using info", "level", cfg.LogLevel)
		level = log.InfoLevel
	}
	if cfg.Silent {
		level = log.ErrorLevel
	}
	logger.SetLevel(level)
	return logger
}

// discardLogger is used where a component needs a logger but nothing
// should be printed.
func discardLogger() *log.Logger {
	return log.New(io.Discard)
}

// stderrLogger is the fallback before the configuration has been read.
func stderrLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{Prefix: "wikibind"})
}
