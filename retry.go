// Copyright (c) 2024 gobq authors. All rights reserved.

package gobq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"syscall"

	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// retryHelperError is the terminal error of runWithRetries. It carries the last
// error seen and whether the retry budget, rather than a fatal error, ended the loop.
type retryHelperError struct {
	Attempts  int
	Err       error
	exhausted bool
}

func (e *retryHelperError) Error() string {
	if e.exhausted {
		return fmt.Sprintf("retry budget exhausted after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *retryHelperError) Unwrap() error {
	return e.Err
}

// runWithRetries calls op until it succeeds, fails with an error isRetryable
// rejects, or the attempt or elapsed time budget of settings runs out. Elapsed
// time and sleeps are measured on clock.
func runWithRetries[T any](
	ctx context.Context,
	op func(context.Context) (T, error),
	settings RetrySettings,
	retryConfig *RetryConfig,
	clock Clock) (T, error) {
	var zero T
	if clock == nil {
		clock = DefaultClock
	}
	start := clock.Now()
	backoff := gax.Backoff{
		Initial:    settings.InitialRetryDelay,
		Max:        settings.MaxRetryDelay,
		Multiplier: settings.RetryDelayMultiplier,
	}
	for attempt := 1; ; attempt++ {
		res, err := op(ctx)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil || !isRetryable(err, retryConfig) {
			return zero, &retryHelperError{Attempts: attempt, Err: err}
		}
		if settings.MaxAttempts > 0 && attempt >= settings.MaxAttempts {
			logger.WithContext(ctx).Warnf("giving up after %v attempts. err: %v", attempt, err)
			return zero, &retryHelperError{Attempts: attempt, Err: err, exhausted: true}
		}
		sleepTime := backoff.Pause()
		if settings.TotalTimeout > 0 && clock.Now().Add(sleepTime).Sub(start) > settings.TotalTimeout {
			logger.WithContext(ctx).Warnf("retry timeout %v reached after %v attempts. err: %v",
				settings.TotalTimeout, attempt, err)
			return zero, &retryHelperError{Attempts: attempt, Err: err, exhausted: true}
		}
		logger.WithContext(ctx).Debugf("attempt %v failed. err: %v. sleeping %v before retrying", attempt, err, sleepTime)

		select {
		case <-clock.After(sleepTime):
			// retry the call
		case <-ctx.Done():
			return zero, &retryHelperError{Attempts: attempt, Err: ctx.Err()}
		}
	}
}

// isRetryable classifies err as transient (network trouble, server errors,
// rate limits) or fatal. Cancellation of the caller's context is always fatal.
func isRetryable(err error, retryConfig *RetryConfig) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		case http.StatusForbidden:
			for _, item := range gerr.Errors {
				if item.Reason == "rateLimitExceeded" || item.Reason == "backendError" {
					return true
				}
			}
		}
		return matchesRetryConfig(gerr.Message, retryConfig)
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.ResourceExhausted, codes.Internal, codes.DeadlineExceeded:
			return true
		}
		return matchesRetryConfig(s.Message(), retryConfig)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	return matchesRetryConfig(err.Error(), retryConfig)
}

func matchesRetryConfig(message string, retryConfig *RetryConfig) bool {
	if retryConfig == nil || message == "" {
		return false
	}
	for _, m := range retryConfig.RetriableErrorMessages {
		if strings.Contains(message, m) {
			return true
		}
	}
	for _, expr := range retryConfig.RetriableRegExes {
		re, err := regexp.Compile(expr)
		if err != nil {
			logger.Warnf("ignoring invalid retriable regex %q: %v", expr, err)
			continue
		}
		if re.MatchString(message) {
			return true
		}
	}
	return false
}
