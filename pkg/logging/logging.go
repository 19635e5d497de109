package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger so callers depend on this package, not on zap's
// construction details.
type Logger struct {
	*zap.Logger
}

// Config holds logging configuration, typically filled from yaml.
type Config struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level"`
	// Format: json or console
	Format string `yaml:"format"`
}

// New builds a production logger with the given level and encoding.
func New(cfg Config) (*Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Format != "" {
		zapCfg.Encoding = cfg.Format
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{logger}, nil
}

// NewNop returns a logger that discards everything. Useful in tests and as
// the default when no logger is injected.
func NewNop() *Logger {
	return &Logger{zap.NewNop()}
}

// Named returns a child logger with a component name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{l.Logger.Named(name)}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
