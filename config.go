// Copyright (c) 2024 gobq authors. All rights reserved.

package gobq

import (
	"time"
)

const (
	defaultBufferSize            = 1000
	defaultTotalToPageRowRatio   = 3
	defaultMinResultSize         = 200000
	defaultInitialRetryDelay     = 1 * time.Second
	defaultMaxRetryDelay         = 32 * time.Second
	defaultRetryDelayMultiplier  = 2.0
	defaultTotalRetryTimeout     = 5 * time.Minute
	defaultMaxRetryAttempts      = 6
	defaultQueryResultsWaitLimit = 10 * time.Second
)

// Config is the process wide configuration shared by every query a Connection runs.
// It is read-only once the Connection is created.
type Config struct {
	ProjectID string // project that owns the query jobs
	Location  string // default job location, used when a job reference carries none

	RetrySettings RetrySettings
	RetryConfig   *RetryConfig
	Clock         Clock

	// ThrowNotFound makes a query job that cannot be found fatal. When false the
	// query yields the rows received so far, possibly none. NewConfig and
	// LoadConnectionConfig set it to true; a Config literal must set it
	// explicitly, since Validate cannot tell an unset false from a chosen one.
	ThrowNotFound bool

	// BufferSize is the capacity, in rows, of the buffer between the row producer
	// and the consumer.
	BufferSize int
}

// RetrySettings bound the retries of a single RPC.
type RetrySettings struct {
	InitialRetryDelay    time.Duration
	MaxRetryDelay        time.Duration
	RetryDelayMultiplier float64
	TotalTimeout         time.Duration // zero means no elapsed time budget
	MaxAttempts          int           // zero means no attempt budget
}

// RetryConfig lists backend error messages that are worth a retry even though
// their status alone would not be.
type RetryConfig struct {
	RetriableErrorMessages []string
	RetriableRegExes       []string
}

// Clock abstracts time so retry budgets and backoff can be tested deterministically.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time                         { return time.Now() }
func (wallClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// DefaultClock is the wall clock.
var DefaultClock Clock = wallClock{}

// DefaultRetrySettings returns the retry settings used when none are configured.
func DefaultRetrySettings() RetrySettings {
	return RetrySettings{
		InitialRetryDelay:    defaultInitialRetryDelay,
		MaxRetryDelay:        defaultMaxRetryDelay,
		RetryDelayMultiplier: defaultRetryDelayMultiplier,
		TotalTimeout:         defaultTotalRetryTimeout,
		MaxAttempts:          defaultMaxRetryAttempts,
	}
}

// DefaultRetryConfig returns the rate limit messages BigQuery reports with a
// non retryable status.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		RetriableErrorMessages: []string{
			"Exceeded rate limits",
			"Job exceeded rate limits",
		},
		RetriableRegExes: []string{
			".*exceeded.*rate.*limit.*",
		},
	}
}

// NewConfig returns a Config for the project with every default filled in.
func NewConfig(projectID string) *Config {
	cfg := &Config{
		ProjectID:     projectID,
		ThrowNotFound: true,
	}
	_ = fillMissingConfigParameters(cfg)
	return cfg
}

// Validate checks the config and fills defaults for unset fields.
func (c *Config) Validate() error {
	return fillMissingConfigParameters(c)
}

func fillMissingConfigParameters(cfg *Config) error {
	if cfg.ProjectID == "" {
		return ErrEmptyProjectID
	}
	if cfg.RetrySettings == (RetrySettings{}) {
		cfg.RetrySettings = DefaultRetrySettings()
	}
	if cfg.RetrySettings.InitialRetryDelay <= 0 {
		cfg.RetrySettings.InitialRetryDelay = defaultInitialRetryDelay
	}
	if cfg.RetrySettings.MaxRetryDelay < cfg.RetrySettings.InitialRetryDelay {
		cfg.RetrySettings.MaxRetryDelay = cfg.RetrySettings.InitialRetryDelay
	}
	if cfg.RetrySettings.RetryDelayMultiplier < 1 {
		cfg.RetrySettings.RetryDelayMultiplier = defaultRetryDelayMultiplier
	}
	if cfg.RetryConfig == nil {
		cfg.RetryConfig = DefaultRetryConfig()
	}
	if cfg.Clock == nil {
		cfg.Clock = DefaultClock
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	return nil
}
