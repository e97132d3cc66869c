package logging

import (
	"fmt"
	"log/slog"

	"pixelmill-server-go/internal/utils"
)

// Config captures logging configuration options.
type Config struct {
	Level    string
	Dir      string
	Filename string
}

// Logger provides access to both the tagged pipeline logger and slog.
type Logger struct {
	base *utils.Logger
}

// New creates a new Logger instance backed by the pipeline logger.
func New(cfg Config) (*Logger, error) {
	logCfg := &utils.LogCfg{
		LogLevel: cfg.Level,
		LogDir:   cfg.Dir,
		LogFile:  cfg.Filename,
	}
	base, err := utils.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("initialise logging: %w", err)
	}
	return &Logger{base: base}, nil
}

// Base exposes the underlying tagged logger.
func (l *Logger) Base() *utils.Logger {
	return l.base
}

// Slog exposes the structured logger for new integrations.
func (l *Logger) Slog() *slog.Logger {
	return l.base.Slog()
}

// Close flushes and closes the underlying logger.
func (l *Logger) Close() error {
	return l.base.Close()
}
