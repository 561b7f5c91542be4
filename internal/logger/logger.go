package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type contextKey struct{}

// Field keys attached to request and task scoped loggers.
const (
	FieldRequestID = "request_id"
	FieldTaskID    = "task_id"
	FieldTier      = "tier"
	FieldPeriod    = "period"
)

// Settings controls the process-wide logger output.
type Settings struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var std = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Init configures the global logger. Output goes to stdout and, if a file is
// configured, to a size-rotated log file as well.
func Init(s Settings) {
	level, err := logrus.ParseLevel(s.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	std.SetLevel(level)

	if strings.EqualFold(s.Format, "json") {
		std.SetFormatter(&logrus.JSONFormatter{})
	} else {
		std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if s.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   s.File,
			MaxSize:    s.MaxSizeMB,
			MaxBackups: s.MaxBackups,
			MaxAge:     s.MaxAgeDays,
			Compress:   s.Compress,
		}
		std.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}
}

// GetLogger returns the logger bound to the context, or a plain entry on the
// global logger when the context carries none.
func GetLogger(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if entry, ok := ctx.Value(contextKey{}).(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(std)
}

// WithEntry binds a logger entry to the context.
func WithEntry(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, contextKey{}, entry)
}

// WithField returns a context whose logger carries an additional field.
func WithField(ctx context.Context, key string, value interface{}) context.Context {
	return WithEntry(ctx, GetLogger(ctx).WithField(key, value))
}

// WithRequestID returns a context whose logger carries the request ID field.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return WithField(ctx, FieldRequestID, requestID)
}

// Debug logs a message at debug level with the context logger.
func Debug(ctx context.Context, args ...interface{}) { GetLogger(ctx).Debug(args...) }

// Debugf logs a formatted message at debug level with the context logger.
func Debugf(ctx context.Context, format string, args ...interface{}) {
	GetLogger(ctx).Debugf(format, args...)
}

// Info logs a message at info level with the context logger.
func Info(ctx context.Context, args ...interface{}) { GetLogger(ctx).Info(args...) }

// Infof logs a formatted message at info level with the context logger.
func Infof(ctx context.Context, format string, args ...interface{}) {
	GetLogger(ctx).Infof(format, args...)
}

// Warn logs a message at warn level with the context logger.
func Warn(ctx context.Context, args ...interface{}) { GetLogger(ctx).Warn(args...) }

// Warnf logs a formatted message at warn level with the context logger.
func Warnf(ctx context.Context, format string, args ...interface{}) {
	GetLogger(ctx).Warnf(format, args...)
}

// Error logs a message at error level with the context logger.
func Error(ctx context.Context, args ...interface{}) { GetLogger(ctx).Error(args...) }

// Errorf logs a formatted message at error level with the context logger.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	GetLogger(ctx).Errorf(format, args...)
}
