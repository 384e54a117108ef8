// Copyright (c) 2024 gobq authors. All rights reserved.

package gobq

import (
	"time"

	bq "google.golang.org/api/bigquery/v2"
)

// Priority is the scheduling priority of a query job.
type Priority string

// CreateDisposition specifies whether a query job may create its destination table.
type CreateDisposition string

// WriteDisposition specifies how a query job writes to an existing destination table.
type WriteDisposition string

// SchemaUpdateOption allows the schema of the destination table to change as a side effect of the query.
type SchemaUpdateOption string

const (
	// InteractivePriority runs the query as soon as possible.
	InteractivePriority Priority = "INTERACTIVE"
	// BatchPriority queues the query until idle resources are available.
	BatchPriority Priority = "BATCH"

	// CreateIfNeeded creates the destination table if it does not exist.
	CreateIfNeeded CreateDisposition = "CREATE_IF_NEEDED"
	// CreateNever fails the job if the destination table does not exist.
	CreateNever CreateDisposition = "CREATE_NEVER"

	// WriteTruncate overwrites the destination table.
	WriteTruncate WriteDisposition = "WRITE_TRUNCATE"
	// WriteAppend appends to the destination table.
	WriteAppend WriteDisposition = "WRITE_APPEND"
	// WriteEmpty fails the job if the destination table is not empty.
	WriteEmpty WriteDisposition = "WRITE_EMPTY"

	// AllowFieldAddition allows adding a nullable field to the schema.
	AllowFieldAddition SchemaUpdateOption = "ALLOW_FIELD_ADDITION"
	// AllowFieldRelaxation allows relaxing a required field to nullable.
	AllowFieldRelaxation SchemaUpdateOption = "ALLOW_FIELD_RELAXATION"
)

// ConnectionProperty is a key value pair attached to every query of a connection,
// for example a session id or a time zone.
type ConnectionProperty struct {
	Key   string
	Value string
}

// UserDefinedFunction is an inline or GCS hosted javascript UDF resource.
type UserDefinedFunction struct {
	InlineCode  string
	ResourceURI string
}

// ReadClientConnectionConfiguration tunes when large results are read through
// the storage read API instead of paged table listing.
type ReadClientConnectionConfiguration struct {
	// TotalToPageRowCountRatio is the ratio of total rows to first page rows
	// above which the read API is used.
	TotalToPageRowCountRatio float64
	// MinResultSize is the number of total rows above which the read API is used.
	MinResultSize int64
	// BufferSize overrides Config.BufferSize for this connection.
	BufferSize int
}

// ConnectionSettings are the caller supplied execution options of a connection.
// Every field is optional. The settings are never modified once handed to a Connection.
type ConnectionSettings struct {
	RequestTimeout       *time.Duration
	ConnectionProperties []*ConnectionProperty
	DefaultDataset       *bq.DatasetReference
	MaximumBytesBilled   *int64
	MaxResults           *int64
	PrefetchedRowLimit   *int64
	UseQueryCache        *bool
	FlattenResults       *bool
	UseLegacySQL         *bool

	ReadClientConnectionConfiguration *ReadClientConnectionConfiguration

	// The following options are only accepted by the job insert API. Setting any of
	// them makes the connection submit queries as jobs.
	Clustering                         *bq.Clustering
	CreateDisposition                  *CreateDisposition
	DestinationEncryptionConfiguration *bq.EncryptionConfiguration
	DestinationTable                   *bq.TableReference
	JobTimeout                         *time.Duration
	MaximumBillingTier                 *int64
	Priority                           *Priority
	RangePartitioning                  *bq.RangePartitioning
	SchemaUpdateOptions                []SchemaUpdateOption
	TableDefinitions                   map[string]bq.ExternalDataConfiguration
	TimePartitioning                   *bq.TimePartitioning
	UserDefinedFunctions               []*UserDefinedFunction
	WriteDisposition                   *WriteDisposition

	AllowLargeResults *bool
}

func (s *ConnectionSettings) readConfiguration() ReadClientConnectionConfiguration {
	rc := ReadClientConnectionConfiguration{
		TotalToPageRowCountRatio: defaultTotalToPageRowRatio,
		MinResultSize:            defaultMinResultSize,
	}
	if s == nil || s.ReadClientConnectionConfiguration == nil {
		return rc
	}
	if s.ReadClientConnectionConfiguration.TotalToPageRowCountRatio > 0 {
		rc.TotalToPageRowCountRatio = s.ReadClientConnectionConfiguration.TotalToPageRowCountRatio
	}
	if s.ReadClientConnectionConfiguration.MinResultSize > 0 {
		rc.MinResultSize = s.ReadClientConnectionConfiguration.MinResultSize
	}
	rc.BufferSize = s.ReadClientConnectionConfiguration.BufferSize
	return rc
}

func (s *ConnectionSettings) prefetchedRowLimit() int64 {
	if s == nil || s.PrefetchedRowLimit == nil {
		return 0
	}
	return *s.PrefetchedRowLimit
}

// Bool returns a pointer to v, for the optional fields of ConnectionSettings.
func Bool(v bool) *bool { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Duration returns a pointer to v.
func Duration(v time.Duration) *time.Duration { return &v }
