// Copyright (c) 2024 gobq authors. All rights reserved.

package gobq

import (
	"database/sql/driver"
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	bq "google.golang.org/api/bigquery/v2"
)

// Row is one result row. Cells are typed per the result schema; RECORD and
// REPEATED cells hold a []driver.Value.
type Row []driver.Value

const (
	civilDateLayout     = "2006-01-02"
	civilTimeLayout     = "15:04:05.999999"
	civilDateTimeLayout = "2006-01-02T15:04:05.999999"
)

func bigQueryTypeToGo(field *bq.TableFieldSchema) reflect.Type {
	if field.Mode == "REPEATED" {
		return reflect.TypeOf([]driver.Value{})
	}
	switch field.Type {
	case "INTEGER", "INT64":
		return reflect.TypeOf(int64(0))
	case "FLOAT", "FLOAT64":
		return reflect.TypeOf(float64(0))
	case "BOOLEAN", "BOOL":
		return reflect.TypeOf(true)
	case "BYTES":
		return reflect.TypeOf([]byte{})
	case "TIMESTAMP":
		return reflect.TypeOf(time.Time{})
	case "RECORD", "STRUCT":
		return reflect.TypeOf([]driver.Value{})
	}
	return reflect.TypeOf("")
}

// convertRows types every cell of rows with schema.
func convertRows(schema *bq.TableSchema, rows []*bq.TableRow) ([]Row, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	var fields []*bq.TableFieldSchema
	if schema != nil {
		fields = schema.Fields
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		row, err := recordToRow(fields, r.F)
		if err != nil {
			return nil, err
		}
		out[i] = row
	}
	return out, nil
}

func recordToRow(fields []*bq.TableFieldSchema, cells []*bq.TableCell) (Row, error) {
	row := make(Row, len(cells))
	for i, cell := range cells {
		if i >= len(fields) {
			return nil, &BigQueryError{
				Number:      ErrCodeColumnIndexOutOfRange,
				Message:     errMsgColumnIndexOutOfRange,
				MessageArgs: []interface{}{len(cells), len(fields)},
			}
		}
		if cell == nil {
			continue
		}
		v, err := cellToValue(fields[i], cell.V)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

// cellToValue converts the JSON form of a cell. Repeated cells arrive as a list
// of {"v": ...} objects, records as {"f": [{"v": ...}, ...]}.
func cellToValue(field *bq.TableFieldSchema, src interface{}) (driver.Value, error) {
	if src == nil {
		return nil, nil
	}
	if field.Mode == "REPEATED" {
		elems, ok := src.([]interface{})
		if !ok {
			return nil, unsupportedValue(field.Type, src)
		}
		values := make([]driver.Value, len(elems))
		for i, e := range elems {
			v, err := scalarOrRecordToValue(field, unwrapCell(e))
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		return values, nil
	}
	return scalarOrRecordToValue(field, src)
}

func unwrapCell(e interface{}) interface{} {
	if m, ok := e.(map[string]interface{}); ok {
		if v, ok := m["v"]; ok {
			return v
		}
	}
	return e
}

func scalarOrRecordToValue(field *bq.TableFieldSchema, src interface{}) (driver.Value, error) {
	if src == nil {
		return nil, nil
	}
	if field.Type == "RECORD" || field.Type == "STRUCT" {
		m, ok := src.(map[string]interface{})
		if !ok {
			return nil, unsupportedValue(field.Type, src)
		}
		cells, _ := m["f"].([]interface{})
		values := make([]driver.Value, len(cells))
		for i, c := range cells {
			if i >= len(field.Fields) {
				return nil, unsupportedValue(field.Type, src)
			}
			v, err := cellToValue(field.Fields[i], unwrapCell(c))
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		return values, nil
	}
	s, ok := src.(string)
	if !ok {
		return nil, unsupportedValue(field.Type, src)
	}
	return stringToValue(field.Type, s)
}

func stringToValue(fieldType string, srcValue string) (driver.Value, error) {
	switch fieldType {
	case "INTEGER", "INT64":
		return strconv.ParseInt(srcValue, 10, 64)
	case "FLOAT", "FLOAT64":
		return strconv.ParseFloat(srcValue, 64)
	case "BOOLEAN", "BOOL":
		return strconv.ParseBool(srcValue)
	case "BYTES":
		return base64.StdEncoding.DecodeString(srcValue)
	case "TIMESTAMP":
		sec, nsec, err := extractTimestamp(srcValue)
		if err != nil {
			return nil, err
		}
		return time.Unix(sec, nsec).UTC(), nil
	}
	// STRING, DATE, TIME, DATETIME, NUMERIC, BIGNUMERIC, GEOGRAPHY, JSON
	return srcValue, nil
}

// extractTimestamp parses epoch seconds with an optional fraction. The backend
// switches to exponent notation for some values, which is parsed at microsecond
// precision.
func extractTimestamp(srcValue string) (sec int64, nsec int64, err error) {
	if strings.ContainsAny(srcValue, "eE") {
		f, err := strconv.ParseFloat(srcValue, 64)
		if err != nil {
			return 0, 0, err
		}
		micros := int64(math.Round(f * 1e6))
		return micros / 1e6, (micros % 1e6) * 1e3, nil
	}
	i := strings.IndexByte(srcValue, '.')
	if i < 0 {
		sec, err = strconv.ParseInt(srcValue, 10, 64)
		return sec, 0, err
	}
	sec, err = strconv.ParseInt(srcValue[:i], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	s := srcValue[i+1:]
	if len(s) > 9 {
		s = s[:9]
	}
	nsec, err = strconv.ParseInt(s+strings.Repeat("0", 9-len(s)), 10, 64)
	if err != nil {
		return 0, 0, err
	}
	if strings.HasPrefix(srcValue, "-") {
		nsec = -nsec
	}
	return sec, nsec, nil
}

// arrowToValue converts cell i of an Arrow column to the same Go types the
// JSON path produces.
func arrowToValue(col arrow.Array, i int) (driver.Value, error) {
	if col.IsNull(i) {
		return nil, nil
	}
	switch c := col.(type) {
	case *array.Int64:
		return c.Value(i), nil
	case *array.Float64:
		return c.Value(i), nil
	case *array.Boolean:
		return c.Value(i), nil
	case *array.String:
		return c.Value(i), nil
	case *array.Binary:
		b := c.Value(i)
		dst := make([]byte, len(b))
		copy(dst, b)
		return dst, nil
	case *array.Timestamp:
		tsType := c.DataType().(*arrow.TimestampType)
		t := c.Value(i).ToTime(tsType.Unit)
		if tsType.TimeZone == "" {
			// DATETIME carries no zone
			return t.Format(civilDateTimeLayout), nil
		}
		return t.UTC(), nil
	case *array.Date32:
		return c.Value(i).ToTime().Format(civilDateLayout), nil
	case *array.Time64:
		unit := c.DataType().(*arrow.Time64Type).Unit
		return c.Value(i).ToTime(unit).Format(civilTimeLayout), nil
	case *array.Decimal128:
		scale := c.DataType().(*arrow.Decimal128Type).Scale
		return c.Value(i).ToString(scale), nil
	case *array.List:
		start, end := c.ValueOffsets(i)
		values := c.ListValues()
		out := make([]driver.Value, 0, end-start)
		for j := int(start); j < int(end); j++ {
			v, err := arrowToValue(values, j)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case *array.Struct:
		out := make([]driver.Value, c.NumField())
		for f := 0; f < c.NumField(); f++ {
			v, err := arrowToValue(c.Field(f), i)
			if err != nil {
				return nil, err
			}
			out[f] = v
		}
		return out, nil
	}
	// BIGNUMERIC and anything newer fall back to the canonical string form
	return col.ValueStr(i), nil
}

func unsupportedValue(fieldType string, v interface{}) error {
	return &BigQueryError{
		Number:      ErrCodeUnsupportedColumnType,
		Message:     errMsgUnsupportedColumnType,
		MessageArgs: []interface{}{fieldType, fmt.Sprintf("%v", v)},
	}
}
