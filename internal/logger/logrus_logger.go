package logger

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// rawLogger implements BQLogger on top of logrus.
type rawLogger struct {
	mu    sync.RWMutex
	inner *logrus.Logger
	level logrus.Level
}

var _ BQLogger = (*rawLogger)(nil)

func newRawLogger() *rawLogger {
	inner := logrus.New()
	inner.SetOutput(os.Stderr)
	inner.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	inner.SetLevel(logrus.InfoLevel)
	return &rawLogger{inner: inner, level: logrus.InfoLevel}
}

func (log *rawLogger) SetLogLevel(level string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	log.level = lvl
	if lvl == levelOff {
		log.inner.SetLevel(logrus.PanicLevel)
	} else {
		log.inner.SetLevel(lvl)
	}
	return nil
}

func (log *rawLogger) GetLogLevel() string {
	log.mu.RLock()
	defer log.mu.RUnlock()
	return levelToString(log.level)
}

func (log *rawLogger) currentLevel() logrus.Level {
	log.mu.RLock()
	defer log.mu.RUnlock()
	return log.level
}

func (log *rawLogger) SetOutput(output io.Writer) {
	log.inner.SetOutput(output)
}

func (log *rawLogger) WithContext(ctx context.Context) LogEntry {
	return &rawEntry{parent: log, inner: log.inner.WithFields(extractContextFields(ctx))}
}

func (log *rawLogger) WithField(key string, value interface{}) LogEntry {
	return &rawEntry{parent: log, inner: log.inner.WithField(key, value)}
}

func (log *rawLogger) WithFields(fields map[string]any) LogEntry {
	return &rawEntry{parent: log, inner: log.inner.WithFields(fields)}
}

func (log *rawLogger) entry() *rawEntry {
	return &rawEntry{parent: log, inner: logrus.NewEntry(log.inner)}
}

func (log *rawLogger) Tracef(format string, args ...interface{}) { log.entry().Tracef(format, args...) }
func (log *rawLogger) Debugf(format string, args ...interface{}) { log.entry().Debugf(format, args...) }
func (log *rawLogger) Infof(format string, args ...interface{})  { log.entry().Infof(format, args...) }
func (log *rawLogger) Warnf(format string, args ...interface{})  { log.entry().Warnf(format, args...) }
func (log *rawLogger) Errorf(format string, args ...interface{}) { log.entry().Errorf(format, args...) }
func (log *rawLogger) Fatalf(format string, args ...interface{}) { log.entry().Fatalf(format, args...) }

func (log *rawLogger) Trace(msg string) { log.entry().Trace(msg) }
func (log *rawLogger) Debug(msg string) { log.entry().Debug(msg) }
func (log *rawLogger) Info(msg string)  { log.entry().Info(msg) }
func (log *rawLogger) Warn(msg string)  { log.entry().Warn(msg) }
func (log *rawLogger) Error(msg string) { log.entry().Error(msg) }
func (log *rawLogger) Fatal(msg string) { log.entry().Fatal(msg) }

// rawEntry is a logrus entry that honors the "off" level. Fatal logs at error
// level; a library never exits the process.
type rawEntry struct {
	parent *rawLogger
	inner  *logrus.Entry
}

func (e *rawEntry) logf(level logrus.Level, format string, args ...interface{}) {
	if !enabled(e.parent.currentLevel(), level) {
		return
	}
	e.inner.Logf(level, format, args...)
}

func (e *rawEntry) log(level logrus.Level, msg string) {
	if !enabled(e.parent.currentLevel(), level) {
		return
	}
	e.inner.Log(level, msg)
}

func (e *rawEntry) Tracef(format string, args ...interface{}) { e.logf(logrus.TraceLevel, format, args...) }
func (e *rawEntry) Debugf(format string, args ...interface{}) { e.logf(logrus.DebugLevel, format, args...) }
func (e *rawEntry) Infof(format string, args ...interface{})  { e.logf(logrus.InfoLevel, format, args...) }
func (e *rawEntry) Warnf(format string, args ...interface{})  { e.logf(logrus.WarnLevel, format, args...) }
func (e *rawEntry) Errorf(format string, args ...interface{}) { e.logf(logrus.ErrorLevel, format, args...) }
func (e *rawEntry) Fatalf(format string, args ...interface{}) { e.logf(logrus.ErrorLevel, format, args...) }

func (e *rawEntry) Trace(msg string) { e.log(logrus.TraceLevel, msg) }
func (e *rawEntry) Debug(msg string) { e.log(logrus.DebugLevel, msg) }
func (e *rawEntry) Info(msg string)  { e.log(logrus.InfoLevel, msg) }
func (e *rawEntry) Warn(msg string)  { e.log(logrus.WarnLevel, msg) }
func (e *rawEntry) Error(msg string) { e.log(logrus.ErrorLevel, msg) }
func (e *rawEntry) Fatal(msg string) { e.log(logrus.ErrorLevel, msg) }
