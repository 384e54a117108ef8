// Copyright (c) 2024 gobq authors. All rights reserved.

package gobq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	storage "cloud.google.com/go/bigquery/storage/apiv1"
	bq "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/option"
)

// Connection runs queries for one project with one set of ConnectionSettings.
// It is safe for concurrent use; every query streams through its own producer.
type Connection struct {
	cfg      *Config
	settings *ConnectionSettings
	rest     *bigQueryRestful

	mu         sync.Mutex
	activeJobs map[string]*JobHandle
}

// DryRunResult describes a query without running it.
type DryRunResult struct {
	Schema              *bq.TableSchema
	Parameters          []*bq.QueryParameter
	TotalBytesProcessed int64
	StatementType       string
}

// NewConnection validates cfg and dials the BigQuery REST service and the
// storage read API. opts are passed to both clients.
func NewConnection(ctx context.Context, cfg *Config, settings *ConnectionSettings, opts ...option.ClientOption) (*Connection, error) {
	if cfg == nil {
		return nil, ErrEmptyProjectID
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	svc, err := bq.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery service: %w", err)
	}
	readClient, err := storage.NewBigQueryReadClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating read client: %w", err)
	}
	logger.WithContext(ctx).Infof("connection created. project: %v, location: %v", cfg.ProjectID, cfg.Location)
	return newConnection(cfg, settings, newBigQueryRestful(svc, readClient)), nil
}

func newConnection(cfg *Config, settings *ConnectionSettings, rest *bigQueryRestful) *Connection {
	return &Connection{
		cfg:        cfg,
		settings:   settings,
		rest:       rest,
		activeJobs: make(map[string]*JobHandle),
	}
}

// ExecuteSelect runs sql and streams its result.
func (c *Connection) ExecuteSelect(ctx context.Context, sql string) (*Rows, error) {
	return c.ExecuteSelectWithParams(ctx, sql, nil, nil)
}

// ExecuteSelectWithParams runs sql with query parameters and job labels and
// streams its result. All parameters must be either named or positional.
// Rows stop fetching when ctx is done or when they are closed.
func (c *Connection) ExecuteSelectWithParams(
	ctx context.Context,
	sql string,
	params []*bq.QueryParameter,
	labels map[string]string) (*Rows, error) {
	loc, err := c.locateResults(ctx, sql, params, labels)
	if err != nil {
		return nil, err
	}
	if loc.job != nil {
		ctx = withJobID(ctx, loc.job.JobID)
	}
	src := c.newPageSource(ctx, loc)
	capacity := c.cfg.BufferSize
	if rc := c.settings.readConfiguration(); rc.BufferSize > 0 {
		capacity = rc.BufferSize
	}
	return newRows(loc, newResultBuffer(ctx, src, capacity, loc.totalRows, loc.jobID())), nil
}

func (c *Connection) locateResults(
	ctx context.Context,
	sql string,
	params []*bq.QueryParameter,
	labels map[string]string) (*resultLocation, error) {
	if isFastQuerySupported(c.settings) {
		req := c.createQueryRequest(sql, params, labels)
		ctx = context.WithValue(ctx, BQRequestIDKey, req.RequestId)
		logger.WithContext(ctx).Debugf("submitting query through jobs.query")
		return c.queryRPC(ctx, req)
	}
	handle, err := c.insertJob(ctx, c.createQueryJob(sql, params, labels))
	if err != nil {
		return nil, err
	}
	ctx = withJobID(ctx, handle.JobID)
	c.trackJob(handle)
	return c.getQueryResultsRPC(ctx, handle)
}

// insertJob creates job. A conflict on a retried insert means an earlier
// attempt already created it.
func (c *Connection) insertJob(ctx context.Context, job *bq.Job) (*JobHandle, error) {
	settings, retryConfig, clock := c.retrySettings()
	inserted, err := runWithRetries(ctx, func(ctx context.Context) (*bq.Job, error) {
		return c.rest.FuncInsertJob(ctx, c.rest, c.cfg.ProjectID, job)
	}, settings, retryConfig, clock)
	if err != nil {
		var rhe *retryHelperError
		if isConflictStatus(err) && errors.As(err, &rhe) && rhe.Attempts > 1 {
			logger.WithContext(ctx).Infof("job %v already exists", job.JobReference.JobId)
			return c.jobHandle(job.JobReference), nil
		}
		return nil, translateError(err)
	}
	ref := job.JobReference
	if inserted != nil && inserted.JobReference != nil {
		ref = inserted.JobReference
	}
	logger.WithContext(ctx).Debugf("job %v created", ref.JobId)
	return c.jobHandle(ref), nil
}

// DryRun validates sql and estimates its cost without running it.
func (c *Connection) DryRun(ctx context.Context, sql string) (*DryRunResult, error) {
	job := c.createQueryJob(sql, nil, nil)
	job.Configuration.DryRun = true
	settings, retryConfig, clock := c.retrySettings()
	inserted, err := runWithRetries(ctx, func(ctx context.Context) (*bq.Job, error) {
		return c.rest.FuncInsertJob(ctx, c.rest, c.cfg.ProjectID, job)
	}, settings, retryConfig, clock)
	if err != nil {
		return nil, translateError(err)
	}
	res := &DryRunResult{}
	if inserted == nil || inserted.Statistics == nil {
		return res, nil
	}
	res.TotalBytesProcessed = inserted.Statistics.TotalBytesProcessed
	if q := inserted.Statistics.Query; q != nil {
		res.Schema = q.Schema
		res.Parameters = q.UndeclaredQueryParameters
		res.StatementType = q.StatementType
		if q.TotalBytesProcessed > 0 {
			res.TotalBytesProcessed = q.TotalBytesProcessed
		}
	}
	return res, nil
}

// Cancel requests cancellation of every job this connection started that has
// not been observed complete. It reports whether any request was sent.
func (c *Connection) Cancel(ctx context.Context) (bool, error) {
	c.mu.Lock()
	handles := make([]*JobHandle, 0, len(c.activeJobs))
	for _, h := range c.activeJobs {
		handles = append(handles, h)
	}
	c.activeJobs = make(map[string]*JobHandle)
	c.mu.Unlock()

	settings, retryConfig, clock := c.retrySettings()
	var errs []error
	sent := false
	for _, h := range handles {
		_, err := runWithRetries(ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.rest.FuncCancelJob(ctx, c.rest, h)
		}, settings, retryConfig, clock)
		if err != nil {
			if isNotFoundStatus(err) {
				continue
			}
			errs = append(errs, translateError(err))
			continue
		}
		logger.WithContext(ctx).Infof("cancellation of job %v requested", h.JobID)
		sent = true
	}
	return sent, errors.Join(errs...)
}

// Close releases the read client. Rows still reading through the read API
// fail after Close.
func (c *Connection) Close() error {
	if c.rest.ReadClient != nil {
		return c.rest.ReadClient.Close()
	}
	return nil
}

func (c *Connection) trackJob(h *JobHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeJobs[h.JobID] = h
}

func (c *Connection) untrackJob(h *JobHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.activeJobs, h.JobID)
}
