// Package logging provides structured logging functionality.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Color      bool
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       false,
		FilePath:   filepath.Join(home, ".config", "optionsim", "logs", "optionsim.log"),
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     30,
		Color:      true,
	}
}

// NewLogger creates a new logger with default configuration.
func NewLogger() zerolog.Logger {
	return NewLoggerWithConfig(DefaultLogConfig())
}

// NewLoggerWithConfig creates a new logger with the specified configuration.
// Console output goes to stderr so command output on stdout stays parseable.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	if cfg.Console {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
			NoColor:    !cfg.Color,
		}
		writers = append(writers, consoleWriter)
	}

	if cfg.File {
		logDir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(logDir, 0755); err == nil {
			fileWriter := &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			}
			writers = append(writers, fileWriter)
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = io.Discard
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	return zerolog.New(writer).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ContextKey is the type for context keys.
type ContextKey string

// LoggerKey is the context key for the logger.
const LoggerKey ContextKey = "logger"

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// WithOperation adds an operation name to the logger context.
func WithOperation(logger zerolog.Logger, operation string) zerolog.Logger {
	return logger.With().Str("operation", operation).Logger()
}

// WithContract adds contract identity to the logger context.
func WithContract(logger zerolog.Logger, ticker string, strike float64, contractType string) zerolog.Logger {
	return logger.With().
		Str("contract", ticker).
		Float64("strike", strike).
		Str("type", contractType).
		Logger()
}

// LogFallback records a degraded Greeks computation that fell back to
// cached values.
func LogFallback(logger zerolog.Logger, ticker, reason string, spot, years, vol float64, err error) {
	logger.Warn().
		Str("event", "greeks_fallback").
		Str("contract", ticker).
		Str("reason", reason).
		Float64("spot", spot).
		Float64("time_to_expiry", years).
		Float64("volatility", vol).
		Err(err).
		Msg("Pricing failed, using cached Greeks")
}

// LogValidation logs the outcome of a strategy validation.
func LogValidation(logger zerolog.Logger, strategy string, valid bool, errs, warnings int) {
	logger.Debug().
		Str("event", "validation").
		Str("strategy", strategy).
		Bool("valid", valid).
		Int("errors", errs).
		Int("warnings", warnings).
		Msg("Strategy validated")
}

// LogSizing logs a Kelly sizing result.
func LogSizing(logger zerolog.Logger, kelly float64, full int, risk string, defaults bool) {
	logger.Debug().
		Str("event", "sizing").
		Float64("kelly", kelly).
		Int("full_contracts", full).
		Str("risk_level", risk).
		Bool("defaults_used", defaults).
		Msg("Position sized")
}
