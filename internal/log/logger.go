package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"

	"modeltool/internal/errors"

	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02 15:04:05"

var (
	isDebug atomic.Bool
	logger  = NewLogger()
)

// Field is a single structured key/value pair attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

// F builds a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger is a structured logger backed by logrus.
type Logger struct {
	entry *logrus.Entry
	file  *os.File
}

// Option configures a Logger.
type Option func(*options)

type options struct {
	out  io.Writer
	json bool
	file string
}

// WithOutput sends log lines to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithJSON switches to one JSON object per line.
func WithJSON() Option {
	return func(o *options) { o.json = true }
}

// WithFile additionally appends log lines to the file at path.
func WithFile(path string) Option {
	return func(o *options) { o.file = path }
}

// NewLogger creates a logger. Without options it writes text lines to stdout.
func NewLogger(opts ...Option) *Logger {
	o := options{out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	l := &Logger{}
	out := o.out
	if o.file != "" {
		f, err := os.OpenFile(o.file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log: cannot open %s: %v\n", o.file, err)
		} else {
			l.file = f
			out = io.MultiWriter(o.out, f)
		}
	}

	base := logrus.New()
	base.SetOutput(out)
	base.SetLevel(logrus.DebugLevel)
	base.SetFormatter(&formatter{json: o.json})
	l.entry = logrus.NewEntry(base)
	return l
}

// Configure replaces the package-level logger.
func Configure(opts ...Option) {
	logger = NewLogger(opts...)
}

// Default returns the package-level logger.
func Default() *Logger {
	return logger
}

// SetDebug enables or disables debug output for every logger.
func SetDebug(debug bool) {
	isDebug.Store(debug)
}

// IsDebug reports whether debug output is enabled.
func IsDebug() bool {
	return isDebug.Load()
}

// With returns a logger that adds fields to every line.
func (l *Logger) With(fields ...Field) *Logger {
	data := make(logrus.Fields, len(fields))
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	return &Logger{entry: l.entry.WithFields(data), file: l.file}
}

// WithError returns a logger carrying err and its classification fields.
func (l *Logger) WithError(err error) *Logger {
	return l.With(errorFields(err)...)
}

// WithContext returns a logger bound to ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	return &Logger{entry: l.entry.WithContext(ctx), file: l.file}
}

// Close releases the log file, if one was opened.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) Debug(args ...interface{}) {
	if IsDebug() {
		l.entry.Debug(args...)
	}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if IsDebug() {
		l.entry.Debugf(format, args...)
	}
}

func (l *Logger) Info(args ...interface{})                  { l.entry.Info(args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warn(args ...interface{})                  { l.entry.Warn(args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

// Package-level helpers write through the configured logger.

func Debug(args ...interface{})                 { logger.Debug(args...) }
func Debugf(format string, args ...interface{}) { logger.Debugf(format, args...) }
func Info(args ...interface{})                  { logger.Info(args...) }
func Infof(format string, args ...interface{})  { logger.Infof(format, args...) }
func Warn(args ...interface{})                  { logger.Warn(args...) }
func Warnf(format string, args ...interface{})  { logger.Warnf(format, args...) }
func Error(args ...interface{})                 { logger.Error(args...) }
func Errorf(format string, args ...interface{}) { logger.Errorf(format, args...) }

// LogWithFields returns the package logger with fields attached.
func LogWithFields(fields ...Field) *Logger {
	return logger.With(fields...)
}

// LogWithError returns the package logger with err attached.
func LogWithError(err error) *Logger {
	return logger.WithError(err)
}

// LogError logs err at error level with msg.
func LogError(err error, msg string) {
	logger.WithError(err).Error(msg)
}

func errorFields(err error) []Field {
	if err == nil {
		return []Field{F("error", "<nil>")}
	}
	fields := []Field{F("error", err.Error())}

	var fileErr *errors.FileError
	var configErr *errors.ConfigError
	var engineErr *errors.EngineError
	var batchErr *errors.BatchError
	switch {
	case errors.As(err, &batchErr):
		fields = append(fields, F("path", batchErr.Path()), F("batch_index", batchErr.Index()))
	case errors.As(err, &fileErr):
		if fileErr.Path() != "" {
			fields = append(fields, F("path", fileErr.Path()))
		}
	case errors.As(err, &configErr):
		if configErr.Param() != "" {
			fields = append(fields, F("param", configErr.Param()))
		}
	case errors.As(err, &engineErr):
		if engineErr.Handle() >= 0 {
			fields = append(fields, F("handle", engineErr.Handle()))
		}
	}

	var kinded interface{ Kind() errors.ErrorKind }
	if errors.As(err, &kinded) {
		fields = append(fields, F("error_kind", int(kinded.Kind())))
	}
	return fields
}

// formatter renders "[time] LEVEL: msg k=v ... caller=file:line" or a JSON
// object with level, message, timestamp and caller keys.
type formatter struct {
	json bool
}

func (f *formatter) Format(e *logrus.Entry) ([]byte, error) {
	level := strings.ToUpper(e.Level.String())
	if level == "WARNING" {
		level = "WARN"
	}
	caller := callerOf()

	if f.json {
		obj := make(map[string]interface{}, len(e.Data)+4)
		for k, v := range e.Data {
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			obj[k] = v
		}
		obj["level"] = level
		obj["message"] = e.Message
		obj["timestamp"] = e.Time.Format(timestampFormat)
		obj["caller"] = caller
		buf, err := json.Marshal(obj)
		if err != nil {
			return nil, err
		}
		return append(buf, '\n'), nil
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "[%s] %s: %s", e.Time.Format(timestampFormat), level, e.Message)
	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	if caller != "" {
		fmt.Fprintf(&b, " caller=%s", caller)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// callerOf walks the stack past logrus and this file to the code that
// issued the log call.
func callerOf() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.Function, "github.com/sirupsen/logrus") &&
			!strings.HasSuffix(frame.File, "internal/log/logger.go") {
			return fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
		}
		if !more {
			return ""
		}
	}
}
