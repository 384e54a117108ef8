// Copyright (c) 2024 gobq authors. All rights reserved.

package gobq

import (
	"context"
	"io"

	bq "google.golang.org/api/bigquery/v2"
)

// pageSource yields the pages of one result in backend order. done is true on
// the last page; nextPage is not called again after that.
type pageSource interface {
	nextPage(ctx context.Context) (rows []Row, done bool, err error)
	close() error
}

// useReadAPI reports whether a result is large enough, relative to its first
// page, to amortize opening a read session.
func useReadAPI(totalRows, pageRows int64, rc ReadClientConnectionConfiguration) bool {
	if pageRows <= 0 {
		return false
	}
	ratio := float64(totalRows) / float64(pageRows)
	return ratio > rc.TotalToPageRowCountRatio && totalRows > rc.MinResultSize
}

// newPageSource picks how the rows behind loc are read.
func (c *Connection) newPageSource(ctx context.Context, loc *resultLocation) pageSource {
	if loc.kind == locationInline {
		return &inlinePageSource{rows: loc.firstPage}
	}
	rc := c.settings.readConfiguration()
	if c.rest.FuncOpenReadSession != nil && useReadAPI(loc.totalRows, int64(len(loc.firstPage)), rc) {
		logger.WithContext(ctx).Infof("reading %v rows of job %v through the read API", loc.totalRows, loc.jobID())
		return &readAPISource{
			conn:  c,
			table: loc.table,
			jobID: loc.jobID(),
		}
	}
	logger.WithContext(ctx).Debugf("reading %v rows of job %v through tabledata.list", loc.totalRows, loc.jobID())
	return &tableDataListSource{
		conn:      c,
		table:     loc.table,
		schema:    loc.schema,
		jobID:     loc.jobID(),
		firstPage: loc.firstPage,
		pageToken: loc.pageToken,
		rowLimit:  c.settings.prefetchedRowLimit(),
	}
}

// inlinePageSource serves a result that fit in a single response.
type inlinePageSource struct {
	rows []Row
}

func (s *inlinePageSource) nextPage(context.Context) ([]Row, bool, error) {
	rows := s.rows
	s.rows = nil
	return rows, true, nil
}

func (s *inlinePageSource) close() error { return nil }

// tableDataListSource serves the cached first page, then lists the destination
// table from the page token on.
type tableDataListSource struct {
	conn        *Connection
	table       *bq.TableReference
	schema      *bq.TableSchema
	jobID       string
	firstPage   []Row
	firstServed bool
	pageToken   string
	rowLimit    int64
}

func (s *tableDataListSource) nextPage(ctx context.Context) ([]Row, bool, error) {
	if !s.firstServed {
		s.firstServed = true
		if len(s.firstPage) > 0 || s.pageToken == "" {
			rows := s.firstPage
			s.firstPage = nil
			return rows, s.pageToken == "", nil
		}
	}
	req := &listTableDataRequest{
		ProjectID: s.table.ProjectId,
		DatasetID: s.table.DatasetId,
		TableID:   s.table.TableId,
		RowLimit:  s.rowLimit,
		PageToken: s.pageToken,
	}
	settings, retryConfig, clock := s.conn.retrySettings()
	resp, err := runWithRetries(ctx, func(ctx context.Context) (*bq.TableDataList, error) {
		return s.conn.rest.FuncListTableData(ctx, s.conn.rest, req)
	}, settings, retryConfig, clock)
	if err != nil {
		if isNotFoundStatus(err) {
			return nil, false, tableNotFoundError(s.jobID, err)
		}
		return nil, false, translateError(err)
	}
	rows, err := convertRows(s.schema, resp.Rows)
	if err != nil {
		return nil, false, err
	}
	s.pageToken = resp.PageToken
	return rows, s.pageToken == "", nil
}

func (s *tableDataListSource) close() error { return nil }

// readAPISource streams the destination table through a storage read session.
// The session starts at row zero, so the cached first page is not used. A
// broken stream is reopened at the offset of the next undelivered row.
type readAPISource struct {
	conn    *Connection
	table   *bq.TableReference
	jobID   string
	session readSession
	stream  rowBatchStream
	offset  int64
	resumes int
}

func (s *readAPISource) nextPage(ctx context.Context) ([]Row, bool, error) {
	settings, retryConfig, clock := s.conn.retrySettings()
	if s.session == nil {
		session, err := runWithRetries(ctx, func(ctx context.Context) (readSession, error) {
			return s.conn.rest.FuncOpenReadSession(ctx, s.conn.rest, s.conn.cfg.ProjectID, s.table)
		}, settings, retryConfig, clock)
		if err != nil {
			if isNotFoundStatus(err) {
				return nil, false, tableNotFoundError(s.jobID, err)
			}
			return nil, false, readSessionError(translateError(err))
		}
		s.session = session
	}
	for {
		if s.stream == nil {
			stream, err := runWithRetries(ctx, func(ctx context.Context) (rowBatchStream, error) {
				return s.session.readRows(ctx, s.offset)
			}, settings, retryConfig, clock)
			if err != nil {
				return nil, false, readSessionError(translateError(err))
			}
			s.stream = stream
		}
		rows, err := s.stream.next()
		if err == io.EOF {
			return nil, true, nil
		}
		if err != nil {
			s.stream.close()
			s.stream = nil
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			if isRetryable(err, retryConfig) && (settings.MaxAttempts <= 0 || s.resumes < settings.MaxAttempts) {
				s.resumes++
				logger.WithContext(ctx).Warnf("read stream of job %v broke at row %v. resuming. err: %v", s.jobID, s.offset, err)
				continue
			}
			return nil, false, readSessionError(err)
		}
		s.resumes = 0
		s.offset += int64(len(rows))
		return rows, false, nil
	}
}

func (s *readAPISource) close() error {
	if s.stream != nil {
		s.stream.close()
		s.stream = nil
	}
	return nil
}
