// Copyright (c) 2024 gobq authors. All rights reserved.

package gobq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	bq "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/googleapi"
)

const (
	testProject  = "test-project"
	testLocation = "US"
)

// fakeClock advances only when something sleeps on it.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *fakeClock) slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

func newTestConfig(clock Clock) *Config {
	cfg := &Config{
		ProjectID:     testProject,
		Location:      testLocation,
		ThrowNotFound: true,
		Clock:         clock,
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

// newTestConnection returns a connection whose RPCs all fail the test until a
// test replaces the ones it expects.
func newTestConnection(t *testing.T, settings *ConnectionSettings) (*Connection, *bigQueryRestful) {
	t.Helper()
	unexpected := func(name string) error {
		t.Errorf("unexpected call to %v", name)
		return fmt.Errorf("unexpected call to %v", name)
	}
	rest := &bigQueryRestful{
		FuncQuery: func(context.Context, *bigQueryRestful, string, *bq.QueryRequest) (*bq.QueryResponse, error) {
			return nil, unexpected("jobs.query")
		},
		FuncInsertJob: func(context.Context, *bigQueryRestful, string, *bq.Job) (*bq.Job, error) {
			return nil, unexpected("jobs.insert")
		},
		FuncGetJob: func(context.Context, *bigQueryRestful, *JobHandle) (*bq.Job, error) {
			return nil, unexpected("jobs.get")
		},
		FuncGetQueryResults: func(context.Context, *bigQueryRestful, *getQueryResultsRequest) (*bq.GetQueryResultsResponse, error) {
			return nil, unexpected("jobs.getQueryResults")
		},
		FuncListTableData: func(context.Context, *bigQueryRestful, *listTableDataRequest) (*bq.TableDataList, error) {
			return nil, unexpected("tabledata.list")
		},
		FuncCancelJob: func(context.Context, *bigQueryRestful, *JobHandle) error {
			return unexpected("jobs.cancel")
		},
	}
	return newConnection(newTestConfig(newFakeClock()), settings, rest), rest
}

func intSchema(names ...string) *bq.TableSchema {
	schema := &bq.TableSchema{}
	for _, n := range names {
		schema.Fields = append(schema.Fields, &bq.TableFieldSchema{Name: n, Type: "INTEGER", Mode: "NULLABLE"})
	}
	return schema
}

// intTableRows returns single column rows holding start .. start+n-1.
func intTableRows(start, n int) []*bq.TableRow {
	rows := make([]*bq.TableRow, n)
	for i := range rows {
		rows[i] = &bq.TableRow{F: []*bq.TableCell{{V: strconv.Itoa(start + i)}}}
	}
	return rows
}

func intRows(start, n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{int64(start + i)}
	}
	return rows
}

func httpError(code int, reason string) error {
	e := &googleapi.Error{Code: code, Message: fmt.Sprintf("http %v", code)}
	if reason != "" {
		e.Errors = []googleapi.ErrorItem{{Reason: reason, Message: reason}}
	}
	return e
}

// drain reads rows until the end of the stream or the first error.
func drain(t *testing.T, rows *Rows) ([]Row, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var out []Row
	for {
		row, err := rows.NextRow(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, row)
	}
}

// fakePageSource serves fixed pages and records how often it was asked.
type fakePageSource struct {
	pages   [][]Row
	errAt   int // page index that fails, -1 for none
	err     error
	panicAt int
	calls   atomic.Int32
	closed  atomic.Bool
	// block makes nextPage wait for ctx after the pages run out
	block bool
}

func newFakePageSource(pages ...[]Row) *fakePageSource {
	return &fakePageSource{pages: pages, errAt: -1, panicAt: -1}
}

func (s *fakePageSource) nextPage(ctx context.Context) ([]Row, bool, error) {
	i := int(s.calls.Add(1)) - 1
	if i == s.panicAt {
		panic("page source exploded")
	}
	if i == s.errAt {
		return nil, false, s.err
	}
	if i >= len(s.pages) {
		if s.block {
			<-ctx.Done()
			return nil, false, ctx.Err()
		}
		return nil, true, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return s.pages[i], !s.block && i == len(s.pages)-1, nil
}

func (s *fakePageSource) close() error {
	s.closed.Store(true)
	return nil
}

// fakeReadSession hands out scripted streams, one per readRows call.
type fakeReadSession struct {
	mu      sync.Mutex
	offsets []int64
	streams []*fakeBatchStream
}

func (s *fakeReadSession) readRows(_ context.Context, offset int64) (rowBatchStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offsets = append(s.offsets, offset)
	if len(s.streams) == 0 {
		return emptyBatchStream{}, nil
	}
	st := s.streams[0]
	s.streams = s.streams[1:]
	return st, nil
}

// fakeBatchStream yields its batches, then err (io.EOF when nil).
type fakeBatchStream struct {
	batches [][]Row
	err     error
	closed  bool
}

func (s *fakeBatchStream) next() ([]Row, error) {
	if len(s.batches) > 0 {
		b := s.batches[0]
		s.batches = s.batches[1:]
		return b, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, io.EOF
}

func (s *fakeBatchStream) close() {
	s.closed = true
}
