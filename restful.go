// Copyright (c) 2024 gobq authors. All rights reserved.

package gobq

import (
	"context"
	"time"

	storage "cloud.google.com/go/bigquery/storage/apiv1"
	bq "google.golang.org/api/bigquery/v2"
)

// getQueryResultsRequest identifies a page of jobs.getQueryResults.
type getQueryResultsRequest struct {
	ProjectID string
	JobID     string
	Location  string
	RowLimit  int64
	Timeout   time.Duration // server side wait for job completion
}

// listTableDataRequest identifies a page of tabledata.list.
type listTableDataRequest struct {
	ProjectID string
	DatasetID string
	TableID   string
	RowLimit  int64
	PageToken string
}

// bigQueryRestful holds the RPCs the query pipeline issues. Every call goes
// through a function field so tests can substitute any of them.
type bigQueryRestful struct {
	Service    *bq.Service
	ReadClient *storage.BigQueryReadClient

	FuncQuery           func(context.Context, *bigQueryRestful, string, *bq.QueryRequest) (*bq.QueryResponse, error)
	FuncInsertJob       func(context.Context, *bigQueryRestful, string, *bq.Job) (*bq.Job, error)
	FuncGetJob          func(context.Context, *bigQueryRestful, *JobHandle) (*bq.Job, error)
	FuncGetQueryResults func(context.Context, *bigQueryRestful, *getQueryResultsRequest) (*bq.GetQueryResultsResponse, error)
	FuncListTableData   func(context.Context, *bigQueryRestful, *listTableDataRequest) (*bq.TableDataList, error)
	FuncCancelJob       func(context.Context, *bigQueryRestful, *JobHandle) error
	FuncOpenReadSession func(context.Context, *bigQueryRestful, string, *bq.TableReference) (readSession, error)
}

func newBigQueryRestful(svc *bq.Service, readClient *storage.BigQueryReadClient) *bigQueryRestful {
	sr := &bigQueryRestful{
		Service:             svc,
		ReadClient:          readClient,
		FuncQuery:           postQuery,
		FuncInsertJob:       insertJob,
		FuncGetJob:          getJob,
		FuncGetQueryResults: getQueryResults,
		FuncListTableData:   listTableData,
		FuncCancelJob:       cancelJob,
	}
	if readClient != nil {
		sr.FuncOpenReadSession = openStorageReadSession
	}
	return sr
}

func postQuery(ctx context.Context, sr *bigQueryRestful, projectID string, req *bq.QueryRequest) (*bq.QueryResponse, error) {
	logger.WithContext(ctx).Debugf("jobs.query. project: %v, requestId: %v", projectID, req.RequestId)
	return sr.Service.Jobs.Query(projectID, req).Context(ctx).Do()
}

func insertJob(ctx context.Context, sr *bigQueryRestful, projectID string, job *bq.Job) (*bq.Job, error) {
	logger.WithContext(ctx).Debugf("jobs.insert. project: %v, jobId: %v", projectID, job.JobReference.JobId)
	return sr.Service.Jobs.Insert(projectID, job).Context(ctx).Do()
}

func getJob(ctx context.Context, sr *bigQueryRestful, handle *JobHandle) (*bq.Job, error) {
	call := sr.Service.Jobs.Get(handle.Project, handle.JobID).Context(ctx)
	if handle.Location != "" {
		call = call.Location(handle.Location)
	}
	return call.Do()
}

func getQueryResults(ctx context.Context, sr *bigQueryRestful, req *getQueryResultsRequest) (*bq.GetQueryResultsResponse, error) {
	call := sr.Service.Jobs.GetQueryResults(req.ProjectID, req.JobID).Context(ctx)
	if req.Location != "" {
		call = call.Location(req.Location)
	}
	if req.RowLimit > 0 {
		call = call.MaxResults(req.RowLimit)
	}
	if req.Timeout > 0 {
		call = call.TimeoutMs(req.Timeout.Milliseconds())
	}
	return call.Do()
}

func listTableData(ctx context.Context, sr *bigQueryRestful, req *listTableDataRequest) (*bq.TableDataList, error) {
	call := sr.Service.Tabledata.List(req.ProjectID, req.DatasetID, req.TableID).Context(ctx)
	if req.RowLimit > 0 {
		call = call.MaxResults(req.RowLimit)
	}
	if req.PageToken != "" {
		call = call.PageToken(req.PageToken)
	}
	return call.Do()
}

func cancelJob(ctx context.Context, sr *bigQueryRestful, handle *JobHandle) error {
	call := sr.Service.Jobs.Cancel(handle.Project, handle.JobID).Context(ctx)
	if handle.Location != "" {
		call = call.Location(handle.Location)
	}
	_, err := call.Do()
	return err
}
