// Copyright (c) 2024 gobq authors. All rights reserved.

package gobq

import (
	"context"
	"database/sql/driver"
	"reflect"
	"strings"

	bq "google.golang.org/api/bigquery/v2"
)

// Rows is a forward-only cursor over the result of a query. It implements
// driver.Rows. A Rows must not be used by more than one goroutine at a time.
type Rows struct {
	schema    *bq.TableSchema
	totalRows int64
	jobID     string
	buffer    *resultBuffer
}

var (
	_ driver.Rows                           = (*Rows)(nil)
	_ driver.RowsColumnTypeDatabaseTypeName = (*Rows)(nil)
	_ driver.RowsColumnTypeNullable         = (*Rows)(nil)
	_ driver.RowsColumnTypeScanType         = (*Rows)(nil)
)

func newRows(loc *resultLocation, buffer *resultBuffer) *Rows {
	return &Rows{
		schema:    loc.schema,
		totalRows: loc.totalRows,
		jobID:     loc.jobID(),
		buffer:    buffer,
	}
}

func (rows *Rows) fields() []*bq.TableFieldSchema {
	if rows.schema == nil {
		return nil
	}
	return rows.schema.Fields
}

// Schema returns the result schema. It is nil for an empty result of a job
// that could not be found.
func (rows *Rows) Schema() *bq.TableSchema {
	return rows.schema
}

// TotalRows returns the row count the backend reported for the whole result.
func (rows *Rows) TotalRows() int64 {
	return rows.totalRows
}

// JobID returns the id of the query job, if the backend created one.
func (rows *Rows) JobID() string {
	return rows.jobID
}

// Columns returns the top level column names.
func (rows *Rows) Columns() []string {
	fields := rows.fields()
	ret := make([]string, len(fields))
	for i, f := range fields {
		ret[i] = f.Name
	}
	return ret
}

// ColumnTypeDatabaseTypeName returns the BigQuery type of a column, with an
// ARRAY<> wrapper for repeated columns.
func (rows *Rows) ColumnTypeDatabaseTypeName(index int) string {
	fields := rows.fields()
	if index < 0 || index >= len(fields) {
		return ""
	}
	typ := strings.ToUpper(fields[index].Type)
	if fields[index].Mode == "REPEATED" {
		return "ARRAY<" + typ + ">"
	}
	return typ
}

func (rows *Rows) ColumnTypeNullable(index int) (nullable, ok bool) {
	fields := rows.fields()
	if index < 0 || index >= len(fields) {
		return false, false
	}
	return fields[index].Mode != "REQUIRED", true
}

func (rows *Rows) ColumnTypeScanType(index int) reflect.Type {
	fields := rows.fields()
	if index < 0 || index >= len(fields) {
		return nil
	}
	return bigQueryTypeToGo(fields[index])
}

// Next copies the next row into dest. It returns io.EOF after the last row.
func (rows *Rows) Next(dest []driver.Value) error {
	row, err := rows.buffer.next(context.Background())
	if err != nil {
		// includes io.EOF
		return err
	}
	if len(dest) < len(row) {
		return &BigQueryError{
			Number:      ErrCodeColumnIndexOutOfRange,
			Message:     errMsgColumnIndexOutOfRange,
			MessageArgs: []interface{}{len(row), len(dest)},
			JobID:       rows.jobID,
		}
	}
	copy(dest, row)
	return nil
}

// NextRow returns the next row, waiting no longer than ctx allows. It returns
// io.EOF after the last row.
func (rows *Rows) NextRow(ctx context.Context) (Row, error) {
	return rows.buffer.next(ctx)
}

// Close stops fetching further pages. Rows already fetched are discarded.
func (rows *Rows) Close() error {
	logger.Debugf("closing rows of job %v", rows.jobID)
	rows.buffer.close()
	return nil
}
