// Copyright (c) 2024 gobq authors. All rights reserved.

package gobq

import (
	"github.com/google/uuid"
	bq "google.golang.org/api/bigquery/v2"
)

const (
	parameterModePositional = "POSITIONAL"
	parameterModeNamed      = "NAMED"

	jobIDPrefix = "gobq_"
)

// JobHandle identifies a query job.
type JobHandle struct {
	Project  string
	JobID    string
	Location string
}

// isFastQuerySupported reports whether the settings fit jobs.query. Any option
// only the job insert API accepts forces the job path.
func isFastQuerySupported(s *ConnectionSettings) bool {
	if s == nil {
		return true
	}
	return s.Clustering == nil &&
		s.CreateDisposition == nil &&
		s.DestinationEncryptionConfiguration == nil &&
		s.DestinationTable == nil &&
		s.JobTimeout == nil &&
		s.MaximumBillingTier == nil &&
		s.Priority == nil &&
		s.RangePartitioning == nil &&
		s.SchemaUpdateOptions == nil &&
		s.TableDefinitions == nil &&
		s.TimePartitioning == nil &&
		s.UserDefinedFunctions == nil &&
		s.WriteDisposition == nil
}

func parameterMode(params []*bq.QueryParameter) string {
	if len(params) == 0 {
		return ""
	}
	if params[0].Name == "" {
		return parameterModePositional
	}
	return parameterModeNamed
}

func connectionPropertiesToProto(props []*ConnectionProperty) []*bq.ConnectionProperty {
	if props == nil {
		return nil
	}
	out := make([]*bq.ConnectionProperty, 0, len(props))
	for _, p := range props {
		out = append(out, &bq.ConnectionProperty{Key: p.Key, Value: p.Value})
	}
	return out
}

// createQueryRequest builds the jobs.query body. Each call carries a fresh
// request id, which makes a retried submission idempotent on the backend.
func (c *Connection) createQueryRequest(sql string, params []*bq.QueryParameter, labels map[string]string) *bq.QueryRequest {
	s := c.settings
	req := &bq.QueryRequest{
		Query:        sql,
		RequestId:    uuid.NewString(),
		Location:     c.cfg.Location,
		UseLegacySql: Bool(false),
	}
	if s == nil {
		s = &ConnectionSettings{}
	}
	req.ConnectionProperties = connectionPropertiesToProto(s.ConnectionProperties)
	if s.DefaultDataset != nil {
		req.DefaultDataset = s.DefaultDataset
	}
	if s.MaximumBytesBilled != nil {
		req.MaximumBytesBilled = *s.MaximumBytesBilled
	}
	if s.MaxResults != nil {
		req.MaxResults = *s.MaxResults
	} else if s.PrefetchedRowLimit != nil {
		req.MaxResults = *s.PrefetchedRowLimit
	}
	if len(params) > 0 {
		req.QueryParameters = params
		req.ParameterMode = parameterMode(params)
	}
	if labels != nil {
		req.Labels = labels
	}
	if s.UseQueryCache != nil {
		req.UseQueryCache = s.UseQueryCache
	}
	if s.UseLegacySQL != nil {
		req.UseLegacySql = s.UseLegacySQL
	}
	if s.RequestTimeout != nil {
		req.TimeoutMs = s.RequestTimeout.Milliseconds()
	}
	return req
}

// createQueryJob builds the jobs.insert body, copying every option that is set.
func (c *Connection) createQueryJob(sql string, params []*bq.QueryParameter, labels map[string]string) *bq.Job {
	s := c.settings
	if s == nil {
		s = &ConnectionSettings{}
	}
	q := &bq.JobConfigurationQuery{
		Query:        sql,
		UseLegacySql: Bool(false),
	}
	if len(params) > 0 {
		q.QueryParameters = params
		q.ParameterMode = parameterMode(params)
	}
	if s.DestinationTable != nil {
		q.DestinationTable = s.DestinationTable
	}
	if s.TableDefinitions != nil {
		q.TableDefinitions = s.TableDefinitions
	}
	if s.UserDefinedFunctions != nil {
		for _, udf := range s.UserDefinedFunctions {
			q.UserDefinedFunctionResources = append(q.UserDefinedFunctionResources, &bq.UserDefinedFunctionResource{
				InlineCode:  udf.InlineCode,
				ResourceUri: udf.ResourceURI,
			})
		}
	}
	if s.CreateDisposition != nil {
		q.CreateDisposition = string(*s.CreateDisposition)
	}
	if s.WriteDisposition != nil {
		q.WriteDisposition = string(*s.WriteDisposition)
	}
	if s.DefaultDataset != nil {
		q.DefaultDataset = s.DefaultDataset
	}
	if s.Priority != nil {
		q.Priority = string(*s.Priority)
	}
	if s.AllowLargeResults != nil {
		q.AllowLargeResults = *s.AllowLargeResults
	}
	if s.UseQueryCache != nil {
		q.UseQueryCache = s.UseQueryCache
	}
	if s.FlattenResults != nil {
		q.FlattenResults = s.FlattenResults
	}
	if s.UseLegacySQL != nil {
		q.UseLegacySql = s.UseLegacySQL
	}
	if s.MaximumBillingTier != nil {
		q.MaximumBillingTier = s.MaximumBillingTier
	}
	if s.MaximumBytesBilled != nil {
		q.MaximumBytesBilled = *s.MaximumBytesBilled
	}
	if s.SchemaUpdateOptions != nil {
		for _, opt := range s.SchemaUpdateOptions {
			q.SchemaUpdateOptions = append(q.SchemaUpdateOptions, string(opt))
		}
	}
	if s.DestinationEncryptionConfiguration != nil {
		q.DestinationEncryptionConfiguration = s.DestinationEncryptionConfiguration
	}
	if s.TimePartitioning != nil {
		q.TimePartitioning = s.TimePartitioning
	}
	if s.Clustering != nil {
		q.Clustering = s.Clustering
	}
	if s.RangePartitioning != nil {
		q.RangePartitioning = s.RangePartitioning
	}
	q.ConnectionProperties = connectionPropertiesToProto(s.ConnectionProperties)

	conf := &bq.JobConfiguration{Query: q}
	if s.JobTimeout != nil {
		conf.JobTimeoutMs = s.JobTimeout.Milliseconds()
	}
	if labels != nil {
		conf.Labels = labels
	}
	return &bq.Job{
		JobReference: &bq.JobReference{
			ProjectId: c.cfg.ProjectID,
			JobId:     jobIDPrefix + uuid.NewString(),
			Location:  c.cfg.Location,
		},
		Configuration: conf,
	}
}

// jobHandle completes ref with the config defaults.
func (c *Connection) jobHandle(ref *bq.JobReference) *JobHandle {
	if ref == nil {
		return nil
	}
	h := &JobHandle{Project: ref.ProjectId, JobID: ref.JobId, Location: ref.Location}
	if h.Project == "" {
		h.Project = c.cfg.ProjectID
	}
	if h.Location == "" {
		h.Location = c.cfg.Location
	}
	return h
}

// NamedParameter returns a scalar query parameter referenced as @name.
func NamedParameter(name, typ, value string) *bq.QueryParameter {
	p := PositionalParameter(typ, value)
	p.Name = name
	return p
}

// PositionalParameter returns a scalar query parameter referenced as ?.
func PositionalParameter(typ, value string) *bq.QueryParameter {
	return &bq.QueryParameter{
		ParameterType:  &bq.QueryParameterType{Type: typ},
		ParameterValue: &bq.QueryParameterValue{Value: value},
	}
}
