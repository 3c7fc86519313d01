// Package logging builds the zap loggers used by mcscales. Console output
// mirrors "[LEVEL]: message" lines on stderr; per-category toggles from the
// configuration silence whole components.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mcscales/internal/config"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // CLI startup, config
	CategoryCodec    Category = "codec"    // Member file parsing and writing
	CategoryBuild    Category = "build"    // Set construction and central generation
	CategoryGrouping Category = "grouping" // Scale grouping and filtering
	CategoryValidate Category = "validate" // Set validation
)

// New builds the process logger writing to stderr. verbose forces debug
// level regardless of cfg.Level.
func New(cfg config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	return NewWithSink(cfg, verbose, zapcore.Lock(os.Stderr))
}

// NewWithSink is New with an explicit destination.
func NewWithSink(cfg config.LoggingConfig, verbose bool, sink zapcore.WriteSyncer) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		var err error
		if level, err = zapcore.ParseLevel(cfg.Level); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	var enc zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "", "console", "text":
		enc = zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			LevelKey:         "level",
			MessageKey:       "msg",
			EncodeLevel:      bracketLevel,
			ConsoleSeparator: " ",
		})
	case "json":
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(ec)
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	core := zapcore.NewCore(enc, sink, zap.NewAtomicLevelAt(level))
	return zap.New(categoryCore{Core: core, cfg: cfg}), nil
}

// For returns the child logger of l for category c.
func For(l *zap.Logger, c Category) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l.Named(string(c))
}

func bracketLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + l.CapitalString() + "]:")
}

// categoryCore drops entries from disabled categories.
type categoryCore struct {
	zapcore.Core
	cfg config.LoggingConfig
}

func (c categoryCore) With(fields []zapcore.Field) zapcore.Core {
	return categoryCore{Core: c.Core.With(fields), cfg: c.cfg}
}

func (c categoryCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if e.LoggerName != "" && !c.cfg.IsCategoryEnabled(e.LoggerName) {
		return ce
	}
	return c.Core.Check(e, ce)
}
