package logging

import (
	"fmt"
	"log/slog"

	"pixelrank/internal/utils"
)

// Config captures logging configuration options.
type Config struct {
	Level    string
	Dir      string
	Filename string
}

// Logger provides access to both the tagged logger and slog APIs.
type Logger struct {
	core *utils.Logger
}

// New creates a new Logger instance backed by the utils logger.
func New(cfg Config) (*Logger, error) {
	logCfg := &utils.LogCfg{
		LogLevel: cfg.Level,
		LogDir:   cfg.Dir,
		LogFile:  cfg.Filename,
	}
	core, err := utils.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("initialise logging: %w", err)
	}
	return &Logger{core: core}, nil
}

// Core exposes the underlying tagged logger.
func (l *Logger) Core() *utils.Logger {
	return l.core
}

// Slog exposes the structured logger for new integrations.
func (l *Logger) Slog() *slog.Logger {
	return l.core.Slog()
}

// Close flushes and closes the underlying logger.
func (l *Logger) Close() error {
	return l.core.Close()
}
