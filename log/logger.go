// Package log provides structured logging with cluster/node context for
// the dispatch worker.
//
// Two logger variants are available:
//   - Logger: Non-sugared zap.Logger for core dispatch paths (high performance, structured fields)
//   - SugaredLogger: Printf-style logging for CLI/control-plane surfaces (convenience over performance)
//
// Use Logger.Sugar() to obtain a SugaredLogger when needed.
package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NodeContext identifies which cluster and backend a log entry concerns.
// Address is optional: a line about cluster-wide state (e.g. Zeroconf
// membership changes) carries no address.
type NodeContext struct {
	Cluster string
	Address string
}

// Logger provides structured logging with cluster/node context.
//
// Use this for core dispatch paths where performance matters. For CLI and
// control-plane surfaces, use Sugar() to get a SugaredLogger.
type Logger struct {
	zap    *zap.Logger
	level  zapcore.Level
	format string
}

// SugaredLogger provides printf-style logging for CLI and control-plane
// surfaces.
//
// Use this for CLI output, control-plane command handling, and surfaces
// where convenience matters more than performance.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger creates a new logger scoped to a cluster, at debug level with
// JSON output. Output defaults to os.Stderr.
func NewLogger(cluster string) *Logger {
	return newLoggerWithWriter(cluster, os.Stderr, zapcore.DebugLevel, "json")
}

// NewLoggerWithConfig creates a logger scoped to a cluster honoring the
// operator's config.LogConfig (SPEC_FULL.md §6.2): level is one of
// "debug"/"info"/"warn"/"error" (default "info"); format is "json" or
// "console" (default "json"). Output defaults to os.Stderr.
func NewLoggerWithConfig(cluster, level, format string) *Logger {
	return newLoggerWithWriter(cluster, os.Stderr, parseLevel(level), format)
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// WithOutput returns a new logger with a different output writer, keeping
// its current level and format.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	var core zapcore.Core
	if l.format == "console" {
		core = consoleCore(w, l.level)
	} else {
		core = jsonCore(w, l.level)
	}
	return &Logger{
		zap:    l.zap.WithOptions(zap.WrapCore(func(zapcore.Core) zapcore.Core { return core })),
		level:  l.level,
		format: l.format,
	}
}

// WithAddress returns a new logger that additionally tags every entry with
// a backend address, for use inside a Controller or Pick path scoped to
// one node.
func (l *Logger) WithAddress(addr string) *Logger {
	return &Logger{zap: l.zap.With(zap.String("address", addr)), level: l.level, format: l.format}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
}

func jsonCore(w io.Writer, level zapcore.Level) zapcore.Core {
	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(w), level)
}

func consoleCore(w io.Writer, level zapcore.Level) zapcore.Core {
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(w), level)
}

func newLoggerWithWriter(cluster string, w io.Writer, level zapcore.Level, format string) *Logger {
	var core zapcore.Core
	if format == "console" {
		core = consoleCore(w, level)
	} else {
		core = jsonCore(w, level)
	}
	zapLogger := zap.New(core).With(zap.String("cluster", cluster))
	return &Logger{zap: zapLogger, level: level, format: format}
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, zap.Any("fields", fields))
}

// Info logs an info message.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, zap.Any("fields", fields))
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, zap.Any("fields", fields))
}

// Error logs an error message.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, zap.Any("fields", fields))
}

// Sugar returns a SugaredLogger for printf-style logging.
func (l *Logger) Sugar() *SugaredLogger {
	return &SugaredLogger{sugar: l.zap.Sugar()}
}

// Debugf logs a debug message with printf-style formatting.
func (s *SugaredLogger) Debugf(template string, args ...any) {
	s.sugar.Debugf(template, args...)
}

// Infof logs an info message with printf-style formatting.
func (s *SugaredLogger) Infof(template string, args ...any) {
	s.sugar.Infof(template, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (s *SugaredLogger) Warnf(template string, args ...any) {
	s.sugar.Warnf(template, args...)
}

// Errorf logs an error message with printf-style formatting.
func (s *SugaredLogger) Errorf(template string, args ...any) {
	s.sugar.Errorf(template, args...)
}

// With returns a SugaredLogger with additional context fields.
func (s *SugaredLogger) With(args ...any) *SugaredLogger {
	return &SugaredLogger{sugar: s.sugar.With(args...)}
}
