// Copyright (c) 2024 gobq authors. All rights reserved.

package gobq

import (
	"context"
	"fmt"
	"io"

	storage "cloud.google.com/go/bigquery/storage/apiv1"
	"cloud.google.com/go/bigquery/storage/apiv1/storagepb"
	"github.com/apache/arrow-go/v18/arrow/memory"
	bq "google.golang.org/api/bigquery/v2"
)

// readSession is an open storage read session over a table.
type readSession interface {
	// readRows streams the session's rows starting at row offset.
	readRows(ctx context.Context, offset int64) (rowBatchStream, error)
}

// rowBatchStream yields decoded record batches in table order.
type rowBatchStream interface {
	// next returns the rows of the next batch, or io.EOF after the last one.
	next() ([]Row, error)
	close()
}

type storageReadSession struct {
	client  *storage.BigQueryReadClient
	session *storagepb.ReadSession
	pool    memory.Allocator
}

func tablePath(table *bq.TableReference) string {
	return fmt.Sprintf("projects/%s/datasets/%s/tables/%s", table.ProjectId, table.DatasetId, table.TableId)
}

// openStorageReadSession creates an Arrow read session with a single stream so
// rows come back in the order the table holds them.
func openStorageReadSession(ctx context.Context, sr *bigQueryRestful, projectID string, table *bq.TableReference) (readSession, error) {
	session, err := sr.ReadClient.CreateReadSession(ctx, &storagepb.CreateReadSessionRequest{
		Parent: "projects/" + projectID,
		ReadSession: &storagepb.ReadSession{
			Table:      tablePath(table),
			DataFormat: storagepb.DataFormat_ARROW,
		},
		MaxStreamCount: 1,
	})
	if err != nil {
		return nil, err
	}
	logger.WithContext(ctx).Debugf("read session %v opened with %v streams", session.GetName(), len(session.GetStreams()))
	return &storageReadSession{
		client:  sr.ReadClient,
		session: session,
		pool:    memory.DefaultAllocator,
	}, nil
}

func (s *storageReadSession) readRows(ctx context.Context, offset int64) (rowBatchStream, error) {
	streams := s.session.GetStreams()
	if len(streams) == 0 {
		// the backend assigns no stream to an empty table
		return emptyBatchStream{}, nil
	}
	streamCtx, cancel := context.WithCancel(ctx)
	rc, err := s.client.ReadRows(streamCtx, &storagepb.ReadRowsRequest{
		ReadStream: streams[0].GetName(),
		Offset:     offset,
	})
	if err != nil {
		cancel()
		return nil, err
	}
	return &arrowBatchStream{
		rc:     rc,
		schema: s.session.GetArrowSchema().GetSerializedSchema(),
		pool:   s.pool,
		cancel: cancel,
	}, nil
}

type arrowBatchStream struct {
	rc     storagepb.BigQueryRead_ReadRowsClient
	schema []byte
	pool   memory.Allocator
	cancel context.CancelFunc
}

func (s *arrowBatchStream) next() ([]Row, error) {
	for {
		resp, err := s.rc.Recv()
		if err != nil {
			return nil, err
		}
		batch := resp.GetArrowRecordBatch()
		if batch == nil || resp.GetRowCount() == 0 {
			// progress or throttle updates carry no rows
			continue
		}
		arc, err := newArrowResultChunk(s.schema, batch.GetSerializedRecordBatch(), s.pool)
		if err != nil {
			return nil, err
		}
		rows, err := arc.decodeArrowChunk()
		if err != nil {
			return nil, fmt.Errorf("decoding arrow chunk: %w", err)
		}
		return rows, nil
	}
}

func (s *arrowBatchStream) close() {
	s.cancel()
}

type emptyBatchStream struct{}

func (emptyBatchStream) next() ([]Row, error) { return nil, io.EOF }
func (emptyBatchStream) close()               {}
