// Copyright (c) 2024 gobq authors. All rights reserved.

package gobq

import (
	"bytes"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// arrowResultChunk decodes one serialized record batch of a read session. The
// read API sends the IPC schema once per session and bare record batches after
// it, so both are concatenated into a single IPC stream.
type arrowResultChunk struct {
	reader   *ipc.Reader
	rowCount int
}

func newArrowResultChunk(serializedSchema, serializedBatch []byte, pool memory.Allocator) (*arrowResultChunk, error) {
	buf := make([]byte, 0, len(serializedSchema)+len(serializedBatch))
	buf = append(buf, serializedSchema...)
	buf = append(buf, serializedBatch...)
	reader, err := ipc.NewReader(bytes.NewReader(buf), ipc.WithAllocator(pool))
	if err != nil {
		return nil, fmt.Errorf("creating ipc reader: %w", err)
	}
	return &arrowResultChunk{reader: reader}, nil
}

func (arc *arrowResultChunk) decodeArrowChunk() ([]Row, error) {
	defer arc.reader.Release()
	var rows []Row

	for {
		record, err := arc.reader.Read()
		if err == io.EOF {
			return rows, nil
		} else if err != nil {
			return nil, fmt.Errorf("reading arrow record: %w", err)
		}

		start := len(rows)
		numRows := int(record.NumRows())
		columns := record.Columns()

		rows = append(rows, make([]Row, numRows)...)
		for i := start; i < start+numRows; i++ {
			rows[i] = make(Row, len(columns))
		}

		for colIdx, col := range columns {
			for i := 0; i < numRows; i++ {
				if rows[start+i][colIdx], err = arrowToValue(col, i); err != nil {
					return nil, err
				}
			}
		}

		arc.rowCount += numRows
	}
}
