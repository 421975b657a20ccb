// Package log implements structured logging on top of go-kit/log.
package log

import (
	"fmt"
	"io"
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Logger is a leveled, module-scoped structured logger.
type Logger struct {
	logger kitlog.Logger
	level  Level
	module string
}

// NewLogger builds a logger writing to w in the given format.
func NewLogger(module string, w io.Writer, format Format, lvl Level) (*Logger, error) {
	// kitlog.DefaultCaller + 2 for Debug/Info/... and the shared log helper.
	callerUnwind := 5

	var logger kitlog.Logger
	switch format {
	case FmtLogfmt:
		logger = kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	case FmtJSON:
		logger = kitlog.NewJSONLogger(kitlog.NewSyncWriter(w))
	default:
		return nil, fmt.Errorf("log: unsupported log format: %v", format)
	}

	logger = kitlog.With(logger,
		"ts", kitlog.DefaultTimestampUTC,
		"caller", kitlog.Caller(callerUnwind),
	)

	return &Logger{logger: logger, level: lvl, module: module}, nil
}

// NewDefaultLogger returns a logfmt logger on stderr at info level. Stdout is
// reserved for command output.
func NewDefaultLogger(module string) *Logger {
	l, err := NewLogger(module, os.Stderr, FmtLogfmt, LevelInfo)
	if err != nil {
		panic(err)
	}
	return l
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{logger: kitlog.NewNopLogger(), level: LevelNone}
}

func (l *Logger) log(lvl Level, leveled func(kitlog.Logger) kitlog.Logger, msg string, keyvals []interface{}) {
	if l == nil || l.level > lvl {
		return
	}
	keyvals = append([]interface{}{"module", l.module, "msg", msg}, keyvals...)
	_ = leveled(l.logger).Log(keyvals...)
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.log(LevelDebug, level.Debug, msg, keyvals)
}

// Info logs at info level.
func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.log(LevelInfo, level.Info, msg, keyvals)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.log(LevelWarn, level.Warn, msg, keyvals)
}

// Error logs at error level.
func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.log(LevelError, level.Error, msg, keyvals)
}

// With returns a clone carrying keyvals on every record.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{logger: kitlog.With(l.logger, keyvals...), level: l.level, module: l.module}
}

// WithModule returns a clone logging under a different module name.
func (l *Logger) WithModule(module string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{logger: l.logger, level: l.level, module: module}
}

// Level is the logging level.
func (l *Logger) Level() Level {
	return l.level
}
