// Package logging builds the zap logger shared by the command line tools.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects where logs go and how much is written.
type Config struct {
	// Level is a zap level name. Empty means warn, or info when Verbose
	// is set.
	Level string

	// Verbose lowers the default level to info.
	Verbose bool

	// Console receives colored human readable logs. Nil means stderr.
	Console io.Writer

	// DisableConsole turns the console output off, for the TUI.
	DisableConsole bool

	// File enables a rotating JSON log file when not empty.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// level resolves the configured level.
func (c Config) level() (zapcore.Level, error) {
	if c.Level != "" {
		return zapcore.ParseLevel(c.Level)
	}
	if c.Verbose {
		return zapcore.InfoLevel, nil
	}
	return zapcore.WarnLevel, nil
}

// New creates a logger from cfg. When no output is enabled it returns a
// no-op logger.
func New(cfg Config) (*zap.Logger, error) {
	level, err := cfg.level()
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	enabler := zap.NewAtomicLevelAt(level)

	var cores []zapcore.Core
	if !cfg.DisableConsole {
		out := cfg.Console
		if out == nil {
			out = os.Stderr
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig(zapcore.CapitalColorLevelEncoder)),
			zapcore.AddSync(out),
			enabler,
		))
	}
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig(zapcore.CapitalLevelEncoder)),
			zapcore.AddSync(file),
			enabler,
		))
	}
	if len(cores) == 0 {
		return zap.NewNop(), nil
	}

	return zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

func encoderConfig(levelEncoder zapcore.LevelEncoder) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    levelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}
