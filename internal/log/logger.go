// Package log is the structured logging facade used by railctl. It wraps
// logrus so packages log with fields without importing logrus directly.
package log

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"railctl/internal/errors"

	"github.com/sirupsen/logrus"
)

var (
	isDebug atomic.Bool

	mu     sync.RWMutex
	logger = NewLogger()
)

// Field is a single structured key/value pair.
type Field struct {
	Key   string
	Value interface{}
}

// F creates a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger writes leveled, structured entries.
type Logger struct {
	entry *logrus.Entry
	file  *os.File
}

type options struct {
	out  io.Writer
	json bool
	path string
}

// Option configures a Logger.
type Option func(*options)

// WithOutput sets the destination writer.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithJSON switches to JSON formatting.
func WithJSON() Option {
	return func(o *options) { o.json = true }
}

// WithFile appends entries to path instead of the configured writer.
func WithFile(path string) Option {
	return func(o *options) { o.path = path }
}

// NewLogger creates a logger. Output defaults to stderr so stdout stays
// reserved for command output.
func NewLogger(opts ...Option) *Logger {
	o := options{out: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	base := logrus.New()
	base.SetLevel(logrus.DebugLevel)

	var file *os.File
	if o.path != "" {
		f, err := os.OpenFile(o.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err == nil {
			file = f
			o.out = f
		}
	}
	base.SetOutput(o.out)

	if o.json {
		base.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	} else {
		base.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	}

	return &Logger{entry: logrus.NewEntry(base), file: file}
}

// Configure replaces the package logger.
func Configure(opts ...Option) {
	next := NewLogger(opts...)
	mu.Lock()
	prev := logger
	logger = next
	mu.Unlock()
	prev.Close()
}

// Default returns the package logger.
func Default() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetDebug toggles debug output for every logger.
func SetDebug(debug bool) {
	isDebug.Store(debug)
}

// DebugEnabled reports whether debug output is on.
func DebugEnabled() bool {
	return isDebug.Load()
}

// Close releases the log file, if any.
func (l *Logger) Close() {
	if l != nil && l.file != nil {
		_ = l.file.Close()
	}
}

// With returns a logger that adds fields to every entry.
func (l *Logger) With(fields ...Field) *Logger {
	data := make(logrus.Fields, len(fields))
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	return &Logger{entry: l.entry.WithFields(data), file: l.file}
}

// WithError attaches err and, for typed errors, its kind and details.
func (l *Logger) WithError(err error) *Logger {
	return l.With(errorFields(err)...)
}

// WithContext binds ctx to subsequent entries.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	return &Logger{entry: l.entry.WithContext(ctx), file: l.file}
}

func (l *Logger) Info(args ...interface{})                 { l.entry.Info(args...) }
func (l *Logger) Infof(format string, args ...interface{}) { l.entry.Infof(format, args...) }
func (l *Logger) Warn(args ...interface{})                 { l.entry.Warn(args...) }
func (l *Logger) Warnf(format string, args ...interface{}) { l.entry.Warnf(format, args...) }
func (l *Logger) Error(args ...interface{})                { l.entry.Error(args...) }
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

func (l *Logger) Debug(args ...interface{}) {
	if isDebug.Load() {
		l.entry.Debug(args...)
	}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if isDebug.Load() {
		l.entry.Debugf(format, args...)
	}
}

func errorFields(err error) []Field {
	if err == nil {
		return []Field{F("error", "<nil>")}
	}
	fields := []Field{F("error", err.Error()), F("error_kind", errors.KindOf(err).String())}

	var apiErr *errors.APIError
	if errors.As(err, &apiErr) {
		fields = append(fields, F("status", apiErr.Status()))
	}
	var valErr *errors.ValidationError
	if errors.As(err, &valErr) && valErr.Field() != "" {
		fields = append(fields, F("field", valErr.Field()))
	}
	var cfgErr *errors.ConfigError
	if errors.As(err, &cfgErr) && cfgErr.Param() != "" {
		fields = append(fields, F("param", cfgErr.Param()))
	}
	var netErr *errors.NetworkError
	if errors.As(err, &netErr) {
		fields = append(fields, F("op", netErr.Op()))
	}
	return fields
}

// LogWithFields returns the package logger with fields attached.
func LogWithFields(fields ...Field) *Logger {
	return Default().With(fields...)
}

// LogWithError returns the package logger with err attached.
func LogWithError(err error) *Logger {
	return Default().WithError(err)
}

// LogError logs err at error level with msg.
func LogError(err error, msg string) {
	LogWithError(err).Error(msg)
}

func Info(args ...interface{})                  { Default().Info(args...) }
func Infof(format string, args ...interface{})  { Default().Infof(format, args...) }
func Warn(args ...interface{})                  { Default().Warn(args...) }
func Warnf(format string, args ...interface{})  { Default().Warnf(format, args...) }
func Error(args ...interface{})                 { Default().Error(args...) }
func Errorf(format string, args ...interface{}) { Default().Errorf(format, args...) }
func Debug(args ...interface{})                 { Default().Debug(args...) }
func Debugf(format string, args ...interface{}) { Default().Debugf(format, args...) }
