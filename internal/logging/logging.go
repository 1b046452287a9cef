// Package logging wires the process logger to stdout and an optional rolling file.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/radio-control/rangebot/internal/config"
)

// Setup points the standard logger at stdout and, when cfg.File is set, at a
// rolling log file as well. The returned closer releases the file.
func Setup(cfg config.LoggingConfig) (*log.Logger, io.Closer) {
	return setup(cfg, os.Stdout)
}

func setup(cfg config.LoggingConfig, console io.Writer) (*log.Logger, io.Closer) {
	log.SetFlags(log.LstdFlags)

	if cfg.File == "" {
		log.SetOutput(console)
		return log.Default(), nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	log.SetOutput(io.MultiWriter(console, file))
	return log.Default(), file
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
