// Package logging provides structured, leveled logging for godive, backed
// by go.uber.org/zap.
package logging

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the available log levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Config holds logging configuration. Format selects the zap encoder:
// "json" for structured output, anything else (including "") for the
// console encoder.
type Config struct {
	Level   LogLevel
	Format  string
	Output  io.Writer
	Sync    bool // flush after every call; tests want output visible immediately
	NoColor bool
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Format: "text",
		Output: os.Stderr,
	}
}

// Logger wraps a zap.SugaredLogger with the Debug/Info/Warn/Error(msg, kv...)
// call shape used throughout the transport and engine packages.
type Logger struct {
	sugar *zap.SugaredLogger
	sync  bool
}

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

func encoderConfig(noColor bool) zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = "" // tests match on message content, not timestamps
	if noColor {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return cfg
}

// NewLogger creates a new logger from config, defaulting to text output on
// stderr at info level when config is nil.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}

	var encoder zapcore.Encoder
	ec := encoderConfig(config.NoColor)
	if config.Format == "json" {
		encoder = zapcore.NewJSONEncoder(ec)
	} else {
		encoder = zapcore.NewConsoleEncoder(ec)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(output), config.Level.zapLevel())
	logger := zap.New(core)
	return &Logger{sugar: logger.Sugar(), sync: config.Sync}
}

// Default returns the default logger, creating it if necessary.
func Default() *Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault sets the default logger.
func SetDefault(logger *Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

func (l *Logger) maybeSync() {
	if l.sync {
		_ = l.sugar.Sync()
	}
}

func (l *Logger) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
	l.maybeSync()
}

func (l *Logger) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
	l.maybeSync()
}

func (l *Logger) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
	l.maybeSync()
}

func (l *Logger) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
	l.maybeSync()
}

// WithDevice scopes subsequent log lines to a device handle.
func (l *Logger) WithDevice(id int) *Logger {
	return &Logger{sugar: l.sugar.With("device_id", id), sync: l.sync}
}

// WithFamily scopes subsequent log lines to a backend family, e.g.
// "oceanic_vtpro" or "suunto_d9".
func (l *Logger) WithFamily(family string) *Logger {
	return &Logger{sugar: l.sugar.With("family", family), sync: l.sync}
}

// WithTransfer scopes subsequent log lines to one framed transfer, tagged
// by a retry-loop sequence number and the operation name.
func (l *Logger) WithTransfer(tag int, op string) *Logger {
	return &Logger{sugar: l.sugar.With("tag", tag, "op", op), sync: l.sync}
}

// WithError scopes subsequent log lines to a failure, attaching it under
// "error".
func (l *Logger) WithError(err error) *Logger {
	return &Logger{sugar: l.sugar.With("error", err), sync: l.sync}
}

// Global convenience functions operating on the default logger.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }
