package gobq

import (
	"context"

	loggerinternal "github.com/gobq/gobq/internal/logger"
	"github.com/gobq/gobq/loginterface"
)

type contextKey string

// BQJobIDKey is the context key of the query job id
const BQJobIDKey contextKey = "LOG_JOB_ID"

// BQRequestIDKey is the context key of the request id of a query
const BQRequestIDKey contextKey = "LOG_REQUEST_ID"

func init() {
	SetLogKeys(BQJobIDKey, BQRequestIDKey)
	_ = logger.SetLogLevel("error")
}

type (
	// ClientLogContextHook is a client-defined hook that can be used to insert log
	// fields based on the Context.
	ClientLogContextHook = loginterface.ClientLogContextHook

	// LogEntry allows for logging using a snapshot of field values.
	LogEntry = loginterface.LogEntry

	// BQLogger is the logger interface which abstracts away the underlying logging mechanism.
	BQLogger = loginterface.BQLogger
)

// SetLogKeys sets the context keys to be written to logs when logger.WithContext is used.
func SetLogKeys(keys ...contextKey) {
	ikeys := make([]interface{}, len(keys))
	for i, k := range keys {
		ikeys[i] = k
	}
	loggerinternal.SetLogKeys(ikeys)
}

// GetLogKeys returns the currently configured context keys.
func GetLogKeys() []contextKey {
	ikeys := loggerinternal.GetLogKeys()
	keys := make([]contextKey, 0, len(ikeys))
	for _, k := range ikeys {
		if ck, ok := k.(contextKey); ok {
			keys = append(keys, ck)
		}
	}
	return keys
}

// RegisterLogContextHook registers a hook that can be used to extract fields
// from the Context and associated with log messages using the provided key.
func RegisterLogContextHook(contextKey string, ctxExtractor ClientLogContextHook) {
	loggerinternal.RegisterLogContextHook(contextKey, ctxExtractor)
}

// logger delegates to the internal global logger.
var logger BQLogger = loggerinternal.NewLoggerProxy()

// SetLogger sets a new logger. It is wrapped with secret masking.
func SetLogger(inLogger BQLogger) error {
	return loggerinternal.SetLogger(inLogger)
}

// GetLogger returns the current logger.
func GetLogger() BQLogger {
	return logger
}

// CreateDefaultLogger creates a new logrus backed logger with default config.
// It does not replace the current logger.
func CreateDefaultLogger() BQLogger {
	return loggerinternal.CreateDefaultLogger()
}

// withJobID tags ctx so log lines of the query carry its job id.
func withJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, BQJobIDKey, jobID)
}
