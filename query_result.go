// Copyright (c) 2024 gobq authors. All rights reserved.

package gobq

import (
	"context"
	"errors"

	bq "google.golang.org/api/bigquery/v2"
)

type locationKind int

const (
	// the whole result came back with the first page
	locationInline locationKind = iota
	// further pages have to be read from the job's destination table
	locationDestinationTable
)

// resultLocation tells where the rows of a finished query live. The first page,
// if any, is already decoded.
type resultLocation struct {
	kind      locationKind
	job       *JobHandle
	schema    *bq.TableSchema
	totalRows int64
	firstPage []Row
	pageToken string
	table     *bq.TableReference
}

func (l *resultLocation) jobID() string {
	if l.job == nil {
		return ""
	}
	return l.job.JobID
}

func (c *Connection) retrySettings() (RetrySettings, *RetryConfig, Clock) {
	return c.cfg.RetrySettings, c.cfg.RetryConfig, c.cfg.Clock
}

// queryRPC submits req through jobs.query. A response that is complete and
// carries a schema is the first page; anything else is polled by job id.
func (c *Connection) queryRPC(ctx context.Context, req *bq.QueryRequest) (*resultLocation, error) {
	settings, retryConfig, clock := c.retrySettings()
	resp, err := runWithRetries(ctx, func(ctx context.Context) (*bq.QueryResponse, error) {
		return c.rest.FuncQuery(ctx, c.rest, c.cfg.ProjectID, req)
	}, settings, retryConfig, clock)
	if err != nil {
		return nil, translateError(err)
	}
	handle := c.jobHandle(resp.JobReference)
	if len(resp.Errors) > 0 {
		jobID := ""
		if handle != nil {
			jobID = handle.JobID
		}
		return nil, newQueryError(jobID, resp.Errors)
	}
	if resp.JobComplete && resp.Schema != nil {
		return c.processFirstPage(ctx, handle, resp.Schema, resp.Rows, int64(resp.TotalRows), resp.PageToken)
	}
	if handle == nil {
		return nil, &BigQueryError{Number: ErrCodeRequestFailed, Message: errMsgNoJobReference}
	}
	ctx = withJobID(ctx, handle.JobID)
	logger.WithContext(ctx).Debugf("job %v did not complete within the request timeout. polling results", handle.JobID)
	c.trackJob(handle)
	return c.getQueryResultsRPC(ctx, handle)
}

// getQueryResultsRPC polls jobs.getQueryResults until the job completes. Each
// call waits server side for up to defaultQueryResultsWaitLimit.
func (c *Connection) getQueryResultsRPC(ctx context.Context, handle *JobHandle) (*resultLocation, error) {
	settings, retryConfig, clock := c.retrySettings()
	req := &getQueryResultsRequest{
		ProjectID: handle.Project,
		JobID:     handle.JobID,
		Location:  handle.Location,
		RowLimit:  c.settings.prefetchedRowLimit(),
		Timeout:   defaultQueryResultsWaitLimit,
	}
	for polls := 1; ; polls++ {
		resp, err := runWithRetries(ctx, func(ctx context.Context) (*bq.GetQueryResultsResponse, error) {
			return c.rest.FuncGetQueryResults(ctx, c.rest, req)
		}, settings, retryConfig, clock)
		if err != nil {
			if isNotFoundStatus(err) {
				c.untrackJob(handle)
				return c.jobNotFound(ctx, handle, nil, err)
			}
			// a cancelled caller leaves the job tracked so Cancel can still stop it
			if ctx.Err() == nil && !errors.Is(err, context.Canceled) {
				c.untrackJob(handle)
			}
			return nil, translateError(err)
		}
		if len(resp.Errors) > 0 {
			c.untrackJob(handle)
			return nil, newQueryError(handle.JobID, resp.Errors)
		}
		if resp.JobComplete {
			c.untrackJob(handle)
			logger.WithContext(ctx).Debugf("job %v complete after %v polls. total rows: %v", handle.JobID, polls, resp.TotalRows)
			return c.processFirstPage(ctx, handle, resp.Schema, resp.Rows, int64(resp.TotalRows), resp.PageToken)
		}
		if err = ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// processFirstPage decides between a single cached page and a destination
// table that holds the remaining pages.
func (c *Connection) processFirstPage(
	ctx context.Context,
	handle *JobHandle,
	schema *bq.TableSchema,
	rows []*bq.TableRow,
	totalRows int64,
	pageToken string) (*resultLocation, error) {
	firstPage, err := convertRows(schema, rows)
	if err != nil {
		return nil, err
	}
	loc := &resultLocation{
		kind:      locationInline,
		job:       handle,
		schema:    schema,
		totalRows: totalRows,
		firstPage: firstPage,
	}
	if pageToken == "" {
		return loc, nil
	}
	if handle == nil {
		return nil, &BigQueryError{Number: ErrCodeRequestFailed, Message: errMsgNoJobReference}
	}
	job, err := c.queryJobsGetRPC(ctx, handle)
	if err != nil {
		if IsNotFound(err) {
			return c.jobNotFound(ctx, handle, loc, err)
		}
		return nil, err
	}
	table, err := c.destinationTable(handle, job)
	if err != nil {
		return nil, err
	}
	loc.kind = locationDestinationTable
	loc.pageToken = pageToken
	loc.table = table
	return loc, nil
}

// queryJobsGetRPC fetches the finished job, surfacing a failed job as a query error.
func (c *Connection) queryJobsGetRPC(ctx context.Context, handle *JobHandle) (*bq.Job, error) {
	settings, retryConfig, clock := c.retrySettings()
	job, err := runWithRetries(ctx, func(ctx context.Context) (*bq.Job, error) {
		return c.rest.FuncGetJob(ctx, c.rest, handle)
	}, settings, retryConfig, clock)
	if err != nil {
		if isNotFoundStatus(err) {
			return nil, jobNotFoundError(handle.JobID, err)
		}
		return nil, translateError(err)
	}
	if job == nil {
		return nil, jobNotFoundError(handle.JobID, nil)
	}
	if job.Status != nil && job.Status.ErrorResult != nil {
		protos := job.Status.Errors
		if len(protos) == 0 {
			protos = []*bq.ErrorProto{job.Status.ErrorResult}
		}
		return nil, newQueryError(handle.JobID, protos)
	}
	return job, nil
}

func (c *Connection) destinationTable(handle *JobHandle, job *bq.Job) (*bq.TableReference, error) {
	if job.Configuration == nil || job.Configuration.Query == nil || job.Configuration.Query.DestinationTable == nil {
		return nil, &BigQueryError{Number: ErrCodeRequestFailed, Message: errMsgNoDestinationTable, JobID: handle.JobID}
	}
	table := *job.Configuration.Query.DestinationTable
	if table.ProjectId == "" {
		table.ProjectId = c.cfg.ProjectID
	}
	return &table, nil
}

// jobNotFound fails with ErrCodeJobNotFound, or yields what is known of the
// result when the config tolerates jobs that are not visible yet. A first page
// already received is kept along with its schema and total row count.
func (c *Connection) jobNotFound(ctx context.Context, handle *JobHandle, partial *resultLocation, cause error) (*resultLocation, error) {
	if c.cfg.ThrowNotFound {
		var be *BigQueryError
		if errors.As(cause, &be) && be.Number == ErrCodeJobNotFound {
			return nil, be
		}
		return nil, jobNotFoundError(handle.JobID, cause)
	}
	if partial == nil {
		logger.WithContext(ctx).Warnf("job %v not found. returning an empty result", handle.JobID)
		return &resultLocation{kind: locationInline, job: handle}, nil
	}
	logger.WithContext(ctx).Warnf("job %v not found after its first page. result truncated to %v of %v rows",
		handle.JobID, len(partial.firstPage), partial.totalRows)
	return &resultLocation{
		kind:      locationInline,
		job:       handle,
		schema:    partial.schema,
		totalRows: partial.totalRows,
		firstPage: partial.firstPage,
	}, nil
}
