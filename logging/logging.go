// Package logging provides the zap-backed logger used by the path planner's long-lived components.
package logging

import (
	"io"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// DefaultTimeFormatStr is the time format used when printing log lines.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Logger is the logging interface handed to every component that logs.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// Sublogger returns a child named "<name>.<subname>" whose level starts at, and then moves
	// independently of, this logger's level.
	Sublogger(subname string) Logger
	SetLevel(level Level)
	GetLevel() Level
	AsZap() *zap.SugaredLogger
	Sync() error
}

type zapLogger struct {
	*zap.SugaredLogger
	base  zapcore.Core
	level zap.AtomicLevel
}

func newZapLogger(name string, level Level, base zapcore.Core) *zapLogger {
	atomic := zap.NewAtomicLevelAt(level.AsZap())
	sugar := zap.New(levelCore{Core: base, level: atomic}, zap.AddCaller()).Sugar()
	if name != "" {
		sugar = sugar.Named(name)
	}
	return &zapLogger{SugaredLogger: sugar, base: base, level: atomic}
}

func (l *zapLogger) Sublogger(subname string) Logger {
	atomic := zap.NewAtomicLevelAt(l.level.Level())
	sugar := l.SugaredLogger.WithOptions(zap.WrapCore(func(zapcore.Core) zapcore.Core {
		return levelCore{Core: l.base, level: atomic}
	})).Named(subname)
	return &zapLogger{SugaredLogger: sugar, base: l.base, level: atomic}
}

func (l *zapLogger) SetLevel(level Level) {
	l.level.SetLevel(level.AsZap())
}

func (l *zapLogger) GetLevel() Level {
	return levelFromZap(l.level.Level())
}

func (l *zapLogger) AsZap() *zap.SugaredLogger {
	return l.SugaredLogger
}

// levelCore gates a core on a level that can change after the logger is built.
type levelCore struct {
	zapcore.Core
	level zap.AtomicLevel
}

func (c levelCore) Enabled(lvl zapcore.Level) bool {
	return c.level.Enabled(lvl)
}

func (c levelCore) With(fields []zapcore.Field) zapcore.Core {
	return levelCore{Core: c.Core.With(fields), level: c.level}
}

func (c levelCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.level.Enabled(entry.Level) {
		return ce
	}
	return c.Core.Check(entry, ce)
}

func encoderConfig(inUTC bool) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		if inUTC {
			t = t.UTC()
		}
		enc.AppendString(t.Format(DefaultTimeFormatStr))
	}
	return cfg
}

// consoleCore writes tab separated lines with the structured fields as a trailing JSON object.
func consoleCore(w io.Writer) zapcore.Core {
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig(true)), zapcore.AddSync(w), zapcore.DebugLevel)
}

// NewLogger returns a new logger that outputs Info+ logs to stdout in UTC.
func NewLogger(name string) Logger {
	return newZapLogger(name, INFO, consoleCore(os.Stdout))
}

// NewDebugLogger returns a new logger that outputs Debug+ logs to stdout in UTC.
func NewDebugLogger(name string) Logger {
	return newZapLogger(name, DEBUG, consoleCore(os.Stdout))
}

// NewWriterLogger returns a new logger that outputs logs at level and above to w in UTC.
func NewWriterLogger(name string, level Level, w io.Writer) Logger {
	return newZapLogger(name, level, consoleCore(w))
}

// NewBlankLogger returns a logger that discards everything.
func NewBlankLogger(name string) Logger {
	return newZapLogger(name, DEBUG, zapcore.NewNopCore())
}

// NewTestLogger returns a new logger that outputs Debug+ logs to the test object in local time.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is like NewTestLogger but also saves logs to an in memory observer.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	testCore := zaptest.NewLogger(tb, zaptest.Level(zapcore.DebugLevel)).Core()
	observerCore, observedLogs := observer.New(zapcore.DebugLevel)
	return newZapLogger("", DEBUG, zapcore.NewTee(testCore, observerCore)), observedLogs
}
