package logger

import (
	"errors"
	"log/slog"
	"os"
)

// Logging levels
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Environments. Dev logs text for humans, prod logs JSON
const (
	EnvDevelopment = "dev"
	EnvProduction  = "prod"
)

// Logger interface defines the logging contract
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	With(args ...any) Logger
}

// New creates logger for the given environment and level
func New(environment string, level string) (Logger, error) {
	opts := &slog.HandlerOptions{
		Level:       parseLevelString(level),
		AddSource:   true,
		ReplaceAttr: trimSourcePath,
	}

	var handler slog.Handler
	switch environment {
	case EnvDevelopment:
		handler = slog.NewTextHandler(os.Stdout, opts)
	case EnvProduction:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		return nil, errors.New("unknown environment: " + environment)
	}

	return &slogLogger{logger: slog.New(handler)}, nil
}

// NewNoOp creates a logger that discards all log messages
func NewNoOp() Logger {
	return &slogLogger{logger: slog.New(slog.DiscardHandler)}
}
