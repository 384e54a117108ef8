// Copyright (c) 2024 gobq authors. All rights reserved.

package gobq

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

type streamState int32

const (
	streamIdle streamState = iota
	streamProducing
	streamDraining
	streamClosed
)

func (s streamState) String() string {
	switch s {
	case streamIdle:
		return "idle"
	case streamProducing:
		return "producing"
	case streamDraining:
		return "draining"
	case streamClosed:
		return "closed"
	}
	return "unknown"
}

// bufferItem is a row, a producer error, or the end of stream sentinel.
type bufferItem struct {
	row Row
	err error
	end bool
}

// resultBuffer is a bounded queue between one producer goroutine pulling pages
// from a pageSource and one consumer. The producer blocks while the queue is
// full. Consumer methods must not be called concurrently.
type resultBuffer struct {
	items     chan bufferItem
	state     atomic.Int32
	ctx       context.Context
	cancel    context.CancelCauseFunc
	done      chan struct{}
	src       pageSource
	totalRows int64
	jobID     string

	// consumer side
	delivered int64
	err       error
	closeOnce sync.Once
}

// newResultBuffer starts producing rows of src. The producer stops when ctx is
// done or the buffer is closed.
func newResultBuffer(ctx context.Context, src pageSource, capacity int, totalRows int64, jobID string) *resultBuffer {
	if capacity <= 0 {
		capacity = defaultBufferSize
	}
	pctx, cancel := context.WithCancelCause(ctx)
	b := &resultBuffer{
		items:     make(chan bufferItem, capacity),
		ctx:       pctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		src:       src,
		totalRows: totalRows,
		jobID:     jobID,
	}
	go GoroutineWrapper(pctx, b.produce)
	return b
}

func (b *resultBuffer) currentState() streamState {
	return streamState(b.state.Load())
}

func (b *resultBuffer) produce() {
	defer close(b.done)
	// releases the context; queued items stay readable
	defer b.cancel(ErrStreamAborted)
	defer func() {
		if err := b.src.close(); err != nil {
			logger.WithContext(b.ctx).Warnf("failed to close page source of job %v: %v", b.jobID, err)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			logger.WithContext(b.ctx).Errorf("row producer of job %v panicked: %v", b.jobID, r)
			b.offer(bufferItem{err: &BigQueryError{
				Number:      ErrCodeStreamProducer,
				Message:     errMsgStreamProducer,
				MessageArgs: []interface{}{r},
				JobID:       b.jobID,
			}})
		}
	}()

	for pages := 1; ; pages++ {
		rows, last, err := b.src.nextPage(b.ctx)
		if err != nil {
			if b.ctx.Err() != nil {
				return
			}
			logger.WithContext(b.ctx).Errorf("failed to fetch page %v of job %v: %v", pages, b.jobID, err)
			b.offer(bufferItem{err: err})
			return
		}
		b.state.CompareAndSwap(int32(streamIdle), int32(streamProducing))
		logger.WithContext(b.ctx).Debugf("page %v of job %v fetched. rows: %v", pages, b.jobID, len(rows))
		for _, row := range rows {
			if !b.offer(bufferItem{row: row}) {
				return
			}
		}
		if last {
			if b.offer(bufferItem{end: true}) {
				b.state.CompareAndSwap(int32(streamProducing), int32(streamDraining))
			}
			return
		}
	}
}

// offer blocks until the item is queued or the stream is aborted.
func (b *resultBuffer) offer(item bufferItem) bool {
	select {
	case b.items <- item:
		return true
	case <-b.ctx.Done():
		return false
	}
}

// next blocks until the next row is available. It returns io.EOF after the
// last row and after close. A producer error is returned on every later call.
func (b *resultBuffer) next(ctx context.Context) (Row, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.currentState() == streamClosed {
		return nil, io.EOF
	}
	select {
	case item := <-b.items:
		return b.deliver(item)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.done:
		select {
		case item := <-b.items:
			return b.deliver(item)
		default:
		}
		cause := context.Cause(b.ctx)
		if cause == nil || errors.Is(cause, ErrStreamAborted) {
			b.state.Store(int32(streamClosed))
			return nil, io.EOF
		}
		b.err = cause
		return nil, cause
	}
}

func (b *resultBuffer) deliver(item bufferItem) (Row, error) {
	switch {
	case item.err != nil:
		b.err = item.err
		return nil, item.err
	case item.end:
		b.state.Store(int32(streamClosed))
		if b.delivered != b.totalRows {
			logger.WithContext(b.ctx).Warnf("job %v delivered %v rows but reported %v", b.jobID, b.delivered, b.totalRows)
		}
		return nil, io.EOF
	}
	b.delivered++
	return item.row, nil
}

// close aborts the producer and waits for it to exit. No page is fetched
// once close returns.
func (b *resultBuffer) close() {
	b.closeOnce.Do(func() {
		b.cancel(ErrStreamAborted)
		<-b.done
		b.state.Store(int32(streamClosed))
	})
}
