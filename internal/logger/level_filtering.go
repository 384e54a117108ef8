package logger

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// levelFilteringLogger drops messages below the configured level before the
// inner layers format and mask them.
type levelFilteringLogger struct {
	inner BQLogger
}

var _ BQLogger = (*levelFilteringLogger)(nil)

func newLevelFilteringLogger(inner BQLogger) *levelFilteringLogger {
	return &levelFilteringLogger{inner: inner}
}

// Unwrap returns the inner logger
func (l *levelFilteringLogger) Unwrap() interface{} {
	return l.inner
}

func (l *levelFilteringLogger) shouldLog(level logrus.Level) bool {
	configured, err := parseLevel(l.inner.GetLogLevel())
	if err != nil {
		return true
	}
	return enabled(configured, level)
}

func (l *levelFilteringLogger) Tracef(format string, args ...interface{}) {
	if l.shouldLog(logrus.TraceLevel) {
		l.inner.Tracef(format, args...)
	}
}

func (l *levelFilteringLogger) Debugf(format string, args ...interface{}) {
	if l.shouldLog(logrus.DebugLevel) {
		l.inner.Debugf(format, args...)
	}
}

func (l *levelFilteringLogger) Infof(format string, args ...interface{}) {
	if l.shouldLog(logrus.InfoLevel) {
		l.inner.Infof(format, args...)
	}
}

func (l *levelFilteringLogger) Warnf(format string, args ...interface{}) {
	if l.shouldLog(logrus.WarnLevel) {
		l.inner.Warnf(format, args...)
	}
}

func (l *levelFilteringLogger) Errorf(format string, args ...interface{}) {
	if l.shouldLog(logrus.ErrorLevel) {
		l.inner.Errorf(format, args...)
	}
}

func (l *levelFilteringLogger) Fatalf(format string, args ...interface{}) {
	if l.shouldLog(logrus.ErrorLevel) {
		l.inner.Fatalf(format, args...)
	}
}

func (l *levelFilteringLogger) Trace(msg string) {
	if l.shouldLog(logrus.TraceLevel) {
		l.inner.Trace(msg)
	}
}

func (l *levelFilteringLogger) Debug(msg string) {
	if l.shouldLog(logrus.DebugLevel) {
		l.inner.Debug(msg)
	}
}

func (l *levelFilteringLogger) Info(msg string) {
	if l.shouldLog(logrus.InfoLevel) {
		l.inner.Info(msg)
	}
}

func (l *levelFilteringLogger) Warn(msg string) {
	if l.shouldLog(logrus.WarnLevel) {
		l.inner.Warn(msg)
	}
}

func (l *levelFilteringLogger) Error(msg string) {
	if l.shouldLog(logrus.ErrorLevel) {
		l.inner.Error(msg)
	}
}

func (l *levelFilteringLogger) Fatal(msg string) {
	if l.shouldLog(logrus.ErrorLevel) {
		l.inner.Fatal(msg)
	}
}

func (l *levelFilteringLogger) WithField(key string, value interface{}) LogEntry {
	return &levelFilteringEntry{parent: l, inner: l.inner.WithField(key, value)}
}

func (l *levelFilteringLogger) WithFields(fields map[string]any) LogEntry {
	return &levelFilteringEntry{parent: l, inner: l.inner.WithFields(fields)}
}

func (l *levelFilteringLogger) WithContext(ctx context.Context) LogEntry {
	return &levelFilteringEntry{parent: l, inner: l.inner.WithContext(ctx)}
}

func (l *levelFilteringLogger) SetLogLevel(level string) error {
	return l.inner.SetLogLevel(level)
}

func (l *levelFilteringLogger) GetLogLevel() string {
	return l.inner.GetLogLevel()
}

func (l *levelFilteringLogger) SetOutput(output io.Writer) {
	l.inner.SetOutput(output)
}

type levelFilteringEntry struct {
	parent *levelFilteringLogger
	inner  LogEntry
}

func (e *levelFilteringEntry) Tracef(format string, args ...interface{}) {
	if e.parent.shouldLog(logrus.TraceLevel) {
		e.inner.Tracef(format, args...)
	}
}

func (e *levelFilteringEntry) Debugf(format string, args ...interface{}) {
	if e.parent.shouldLog(logrus.DebugLevel) {
		e.inner.Debugf(format, args...)
	}
}

func (e *levelFilteringEntry) Infof(format string, args ...interface{}) {
	if e.parent.shouldLog(logrus.InfoLevel) {
		e.inner.Infof(format, args...)
	}
}

func (e *levelFilteringEntry) Warnf(format string, args ...interface{}) {
	if e.parent.shouldLog(logrus.WarnLevel) {
		e.inner.Warnf(format, args...)
	}
}

func (e *levelFilteringEntry) Errorf(format string, args ...interface{}) {
	if e.parent.shouldLog(logrus.ErrorLevel) {
		e.inner.Errorf(format, args...)
	}
}

func (e *levelFilteringEntry) Fatalf(format string, args ...interface{}) {
	if e.parent.shouldLog(logrus.ErrorLevel) {
		e.inner.Fatalf(format, args...)
	}
}

func (e *levelFilteringEntry) Trace(msg string) {
	if e.parent.shouldLog(logrus.TraceLevel) {
		e.inner.Trace(msg)
	}
}

func (e *levelFilteringEntry) Debug(msg string) {
	if e.parent.shouldLog(logrus.DebugLevel) {
		e.inner.Debug(msg)
	}
}

func (e *levelFilteringEntry) Info(msg string) {
	if e.parent.shouldLog(logrus.InfoLevel) {
		e.inner.Info(msg)
	}
}

func (e *levelFilteringEntry) Warn(msg string) {
	if e.parent.shouldLog(logrus.WarnLevel) {
		e.inner.Warn(msg)
	}
}

func (e *levelFilteringEntry) Error(msg string) {
	if e.parent.shouldLog(logrus.ErrorLevel) {
		e.inner.Error(msg)
	}
}

func (e *levelFilteringEntry) Fatal(msg string) {
	if e.parent.shouldLog(logrus.ErrorLevel) {
		e.inner.Fatal(msg)
	}
}
