package logger

import (
	"errors"
	"sync"
)

var (
	loggerAccessorMu sync.Mutex
	// globalLogger is levelFilteringLogger → secretMaskingLogger → raw logger.
	globalLogger BQLogger
)

func init() {
	globalLogger = CreateDefaultLogger()
}

// GetLogger returns the global logger for use by internal packages
func GetLogger() BQLogger {
	loggerAccessorMu.Lock()
	defer loggerAccessorMu.Unlock()
	return globalLogger
}

// SetLogger installs providedLogger as the raw logger behind the secret masking
// and level filtering layers. Loggers already wrapped by this package are
// unwrapped first so the layers are never doubled.
func SetLogger(providedLogger BQLogger) error {
	if providedLogger == nil {
		return errors.New("logger cannot be nil")
	}
	if _, isProxy := providedLogger.(*Proxy); isProxy {
		return errors.New("cannot set Proxy as raw logger - it would create infinite recursion")
	}
	raw := providedLogger
	if lf, ok := raw.(*levelFilteringLogger); ok {
		raw = lf.inner
	}
	if sm, ok := raw.(*secretMaskingLogger); ok {
		raw = sm.inner
	}

	loggerAccessorMu.Lock()
	defer loggerAccessorMu.Unlock()
	globalLogger = newLevelFilteringLogger(newSecretMaskingLogger(raw))
	return nil
}

// CreateDefaultLogger returns a new logrus backed logger with the standard layers.
// It does not modify the global logger.
func CreateDefaultLogger() BQLogger {
	return newLevelFilteringLogger(newSecretMaskingLogger(newRawLogger()))
}
