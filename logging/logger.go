// Package logging provides the structured logger used by the radio transactors, the SPI drivers
// and the CLI. It is a thin layer over zap that adds per-context debug tracing.
package logging

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TimeFormat is the layout of console timestamps.
const TimeFormat = "2006-01-02T15:04:05.000Z0700"

// Logger is a leveled key/value logger.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	// CDebugw logs at debug level when the logger's level allows it or ctx was passed through
	// EnableDebugMode.
	CDebugw(ctx context.Context, msg string, keysAndValues ...interface{})
	SetLevel(level zapcore.Level)
	Sublogger(subname string) Logger
}

// logger gates entries on its own level; the zap core underneath accepts everything so that
// CDebugw can get past a raised level.
type logger struct {
	level zap.AtomicLevel
	sugar *zap.SugaredLogger
}

var global = NewLogger("loragw")

// Global returns the logger used when a component was built without one.
func Global() Logger {
	return global
}

// NewLogger returns a logger writing Info+ console lines to stderr with UTC timestamps.
func NewLogger(name string) Logger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleEncoderConfig()),
		zapcore.Lock(os.Stderr),
		zapcore.DebugLevel,
	)
	return newLogger(core, name, zapcore.InfoLevel)
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  zapcore.OmitKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     utcTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func utcTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format(TimeFormat))
}

func newLogger(core zapcore.Core, name string, level zapcore.Level) *logger {
	// Skip the wrapper frame so the caller field names the component that logged.
	sugar := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
	if name != "" {
		sugar = sugar.Named(name)
	}
	return &logger{level: zap.NewAtomicLevelAt(level), sugar: sugar}
}

func (l *logger) Debugw(msg string, keysAndValues ...interface{}) {
	if l.level.Enabled(zapcore.DebugLevel) {
		l.sugar.Debugw(msg, flattenErrors(keysAndValues)...)
	}
}

func (l *logger) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	if l.level.Enabled(zapcore.DebugLevel) || IsDebugMode(ctx) {
		l.sugar.Debugw(msg, flattenErrors(keysAndValues)...)
	}
}

func (l *logger) SetLevel(level zapcore.Level) {
	l.level.SetLevel(level)
}

// Sublogger returns a logger named "<name>.<subname>" starting at the current level. Later level
// changes on either logger do not affect the other.
func (l *logger) Sublogger(subname string) Logger {
	return &logger{level: zap.NewAtomicLevelAt(l.level.Level()), sugar: l.sugar.Named(subname)}
}

// flattenErrors replaces error values with their message. zap otherwise adds an "errorVerbose"
// field holding the stack recorded by github.com/pkg/errors.
func flattenErrors(keysAndValues []interface{}) []interface{} {
	var out []interface{}
	for i := 1; i < len(keysAndValues); i += 2 {
		err, ok := keysAndValues[i].(error)
		if !ok {
			continue
		}
		if out == nil {
			out = append([]interface{}(nil), keysAndValues...)
		}
		out[i] = err.Error()
	}
	if out == nil {
		return keysAndValues
	}
	return out
}
