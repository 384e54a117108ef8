// Copyright (c) 2024 gobq authors. All rights reserved.

package gobq

import (
	"context"
	"database/sql/driver"
	"io"
	"reflect"
	"testing"
	"time"

	bq "google.golang.org/api/bigquery/v2"
)

func newTestRows(schema *bq.TableSchema, pages ...[]Row) *Rows {
	total := 0
	for _, p := range pages {
		total += len(p)
	}
	loc := &resultLocation{
		kind:      locationInline,
		job:       &JobHandle{Project: testProject, JobID: "rows-job"},
		schema:    schema,
		totalRows: int64(total),
	}
	return newRows(loc, newResultBuffer(context.Background(), newFakePageSource(pages...), 10, int64(total), loc.jobID()))
}

func TestRowsColumnMetadata(t *testing.T) {
	schema := &bq.TableSchema{Fields: []*bq.TableFieldSchema{
		{Name: "id", Type: "INTEGER", Mode: "REQUIRED"},
		{Name: "tags", Type: "string", Mode: "REPEATED"},
		{Name: "at", Type: "TIMESTAMP"},
	}}
	rows := newTestRows(schema, nil)
	defer rows.Close()

	assertDeepEqualE(t, rows.Columns(), []string{"id", "tags", "at"})
	assertEqualE(t, rows.ColumnTypeDatabaseTypeName(0), "INTEGER")
	assertEqualE(t, rows.ColumnTypeDatabaseTypeName(1), "ARRAY<STRING>")
	assertEqualE(t, rows.ColumnTypeDatabaseTypeName(5), "")

	nullable, ok := rows.ColumnTypeNullable(0)
	assertTrueE(t, ok)
	assertFalseE(t, nullable)
	nullable, ok = rows.ColumnTypeNullable(2)
	assertTrueE(t, ok)
	assertTrueE(t, nullable)
	_, ok = rows.ColumnTypeNullable(-1)
	assertFalseE(t, ok)

	assertEqualE(t, rows.ColumnTypeScanType(2), reflect.TypeOf(time.Time{}))
	assertNilE(t, rows.ColumnTypeScanType(3))
	assertEqualE(t, rows.JobID(), "rows-job")
	assertEqualE(t, rows.Schema(), schema)
}

func TestRowsNext(t *testing.T) {
	rows := newTestRows(intSchema("n"), intRows(0, 2), intRows(2, 1))
	defer rows.Close()
	dest := make([]driver.Value, 1)
	for i := 0; i < 3; i++ {
		assertNilF(t, rows.Next(dest))
		assertEqualE(t, dest[0], int64(i))
	}
	assertErrIsE(t, rows.Next(dest), io.EOF)
	assertErrIsE(t, rows.Next(dest), io.EOF)
}

func TestRowsNextShortDestination(t *testing.T) {
	rows := newTestRows(intSchema("a", "b"), []Row{{int64(1), int64(2)}})
	defer rows.Close()
	err := rows.Next(make([]driver.Value, 1))
	var be *BigQueryError
	assertErrorsAsF(t, err, &be)
	assertEqualE(t, be.Number, ErrCodeColumnIndexOutOfRange)
	assertEqualE(t, be.JobID, "rows-job")
}

func TestRowsCloseBeforeExhausted(t *testing.T) {
	rows := newTestRows(intSchema("n"), intRows(0, 5), intRows(5, 5))
	row, err := rows.NextRow(context.Background())
	assertNilF(t, err)
	assertDeepEqualE(t, row, Row{int64(0)})
	assertNilF(t, rows.Close())
	assertNilF(t, rows.Close(), "close is idempotent")
	_, err = rows.NextRow(context.Background())
	assertErrIsE(t, err, io.EOF)
}
