package application

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger of the auditor. Every entry is a
// message followed by alternating keys and values.
type Logger struct {
	sugar *zap.SugaredLogger
}

// LoggerConfig selects where and how much the auditor logs.
// Environment is "development" (debug entries, console format) or
// "production" (info entries, JSON format). Level and Format, when set,
// override the environment's choice. Entries always go to stderr and,
// if Path is set, to that file too.
type LoggerConfig struct {
	EnableStacktrace bool   `toml:"enable_stacktrace,omitempty"`
	Environment      string `toml:"env"`
	Level            string `toml:"level,omitempty"`
	Format           string `toml:"format,omitempty"`
	Path             string `toml:"path,omitempty"`
}

func (conf *LoggerConfig) level() (zapcore.Level, error) {
	if conf.Level != "" {
		return zapcore.ParseLevel(conf.Level)
	}
	switch strings.ToLower(conf.Environment) {
	case "development":
		return zapcore.DebugLevel, nil
	case "production":
		return zapcore.InfoLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("Logger environment must be development or production, got %q",
		conf.Environment)
}

func (conf *LoggerConfig) format() (string, error) {
	switch f := strings.ToLower(conf.Format); f {
	case "":
		if strings.EqualFold(conf.Environment, "development") {
			return "console", nil
		}
		return "json", nil
	case "console", "json":
		return f, nil
	}
	return "", fmt.Errorf("Logger format must be console or json, got %q", conf.Format)
}

// NewLogger builds the Logger described by conf. It fails if conf names
// an unknown environment, level or format, or if the log file cannot
// be opened.
func NewLogger(conf *LoggerConfig) (*Logger, error) {
	lvl, err := conf.level()
	if err != nil {
		return nil, err
	}
	encoding, err := conf.format()
	if err != nil {
		return nil, err
	}
	outputs := []string{"stderr"}
	if conf.Path != "" {
		outputs = append(outputs, conf.Path)
	}

	encoder := zap.NewProductionEncoderConfig()
	encoder.TimeKey = "timestamp"
	encoder.CallerKey = "path"
	encoder.StacktraceKey = "stack"
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder.EncodeDuration = zapcore.StringDurationEncoder
	if encoding == "console" {
		encoder.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	zConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(lvl),
		Encoding:          encoding,
		DisableStacktrace: !conf.EnableStacktrace,
		EncoderConfig:     encoder,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
	}
	logger, err := zConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("Cannot build logger: %v", err)
	}
	return &Logger{logger.Sugar()}, nil
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{zap.NewNop().Sugar()}
}

// With returns a Logger that adds the given key-value pairs to every
// entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{l.sugar.With(keysAndValues...)}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// Debug logs details of a self-audit step.
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

// Info logs the progress of the auditor.
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Warn logs a failure the auditor recovers from, such as a change it
// will check again on the next pass.
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// Error logs a failed operation. The auditor keeps running.
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}
