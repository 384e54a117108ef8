// Copyright (c) 2024 gobq authors. All rights reserved.

package gobq

import (
	"database/sql/driver"
	"reflect"
	"testing"
	"time"

	bq "google.golang.org/api/bigquery/v2"
)

func TestStringToValue(t *testing.T) {
	testcases := []struct {
		typ  string
		in   string
		want driver.Value
	}{
		{"INTEGER", "-42", int64(-42)},
		{"INT64", "9223372036854775807", int64(9223372036854775807)},
		{"FLOAT", "1.5", 1.5},
		{"FLOAT64", "-0.25", -0.25},
		{"BOOLEAN", "true", true},
		{"BOOL", "false", false},
		{"BYTES", "aGVsbG8=", []byte("hello")},
		{"STRING", "hello", "hello"},
		{"DATE", "2024-02-29", "2024-02-29"},
		{"TIME", "12:34:56.789", "12:34:56.789"},
		{"DATETIME", "2024-02-29T12:34:56", "2024-02-29T12:34:56"},
		{"NUMERIC", "123.456", "123.456"},
		{"TIMESTAMP", "1700000000.5", time.Unix(1700000000, 500000000).UTC()},
	}
	for _, tc := range testcases {
		t.Run(tc.typ, func(t *testing.T) {
			v, err := stringToValue(tc.typ, tc.in)
			assertNilF(t, err)
			assertDeepEqualE(t, v, tc.want)
		})
	}

	_, err := stringToValue("INTEGER", "forty two")
	assertNotNilF(t, err)
}

func TestExtractTimestamp(t *testing.T) {
	testcases := []struct {
		in   string
		sec  int64
		nsec int64
	}{
		{"0", 0, 0},
		{"1700000000", 1700000000, 0},
		{"1700000000.123456", 1700000000, 123456000},
		{"1.7E9", 1700000000, 0},
		{"-1.5", -1, -500000000},
		{"12.1234567891234", 12, 123456789},
	}
	for _, tc := range testcases {
		t.Run(tc.in, func(t *testing.T) {
			sec, nsec, err := extractTimestamp(tc.in)
			assertNilF(t, err)
			assertEqualE(t, sec, tc.sec)
			assertEqualE(t, nsec, tc.nsec)
		})
	}
	_, _, err := extractTimestamp("yesterday")
	assertNotNilF(t, err)
}

func TestConvertRowsNestedCells(t *testing.T) {
	schema := &bq.TableSchema{Fields: []*bq.TableFieldSchema{
		{Name: "id", Type: "INTEGER"},
		{Name: "tags", Type: "STRING", Mode: "REPEATED"},
		{Name: "point", Type: "RECORD", Fields: []*bq.TableFieldSchema{
			{Name: "x", Type: "FLOAT"},
			{Name: "labels", Type: "STRING", Mode: "REPEATED"},
		}},
		{Name: "missing", Type: "STRING"},
	}}
	rows := []*bq.TableRow{{F: []*bq.TableCell{
		{V: "7"},
		{V: []interface{}{map[string]interface{}{"v": "a"}, map[string]interface{}{"v": "b"}}},
		{V: map[string]interface{}{"f": []interface{}{
			map[string]interface{}{"v": "0.5"},
			map[string]interface{}{"v": []interface{}{map[string]interface{}{"v": "l1"}}},
		}}},
		{V: nil},
	}}}
	got, err := convertRows(schema, rows)
	assertNilF(t, err)
	assertEqualF(t, len(got), 1)
	assertDeepEqualE(t, got[0], Row{
		int64(7),
		[]driver.Value{"a", "b"},
		[]driver.Value{0.5, []driver.Value{"l1"}},
		nil,
	})
}

func TestConvertRowsErrors(t *testing.T) {
	_, err := convertRows(intSchema("n"), []*bq.TableRow{{F: []*bq.TableCell{{V: "1"}, {V: "2"}}}})
	var be *BigQueryError
	assertErrorsAsF(t, err, &be)
	assertEqualE(t, be.Number, ErrCodeColumnIndexOutOfRange)

	_, err = convertRows(intSchema("n"), []*bq.TableRow{{F: []*bq.TableCell{{V: 12}}}})
	assertErrorsAsF(t, err, &be)
	assertEqualE(t, be.Number, ErrCodeUnsupportedColumnType)

	repeated := &bq.TableSchema{Fields: []*bq.TableFieldSchema{{Name: "r", Type: "STRING", Mode: "REPEATED"}}}
	_, err = convertRows(repeated, []*bq.TableRow{{F: []*bq.TableCell{{V: "not a list"}}}})
	assertErrorsAsF(t, err, &be)
	assertEqualE(t, be.Number, ErrCodeUnsupportedColumnType)
}

func TestBigQueryTypeToGo(t *testing.T) {
	testcases := []struct {
		field *bq.TableFieldSchema
		want  reflect.Type
	}{
		{&bq.TableFieldSchema{Type: "INTEGER"}, reflect.TypeOf(int64(0))},
		{&bq.TableFieldSchema{Type: "FLOAT64"}, reflect.TypeOf(float64(0))},
		{&bq.TableFieldSchema{Type: "BOOL"}, reflect.TypeOf(true)},
		{&bq.TableFieldSchema{Type: "BYTES"}, reflect.TypeOf([]byte{})},
		{&bq.TableFieldSchema{Type: "TIMESTAMP"}, reflect.TypeOf(time.Time{})},
		{&bq.TableFieldSchema{Type: "RECORD"}, reflect.TypeOf([]driver.Value{})},
		{&bq.TableFieldSchema{Type: "INTEGER", Mode: "REPEATED"}, reflect.TypeOf([]driver.Value{})},
		{&bq.TableFieldSchema{Type: "DATE"}, reflect.TypeOf("")},
	}
	for _, tc := range testcases {
		assertEqualE(t, bigQueryTypeToGo(tc.field), tc.want, tc.field.Type)
	}
}
