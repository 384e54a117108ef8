// Copyright (c) 2024 gobq authors. All rights reserved.

package gobq

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func waitForProducer(t *testing.T, b *resultBuffer) {
	t.Helper()
	select {
	case <-b.done:
	case <-time.After(5 * time.Second):
		t.Fatal("producer did not exit")
	}
}

func readBuffer(t *testing.T, b *resultBuffer) ([]Row, error) {
	t.Helper()
	var out []Row
	for {
		row, err := b.next(context.Background())
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, row)
	}
}

func TestResultBufferPreservesOrder(t *testing.T) {
	src := newFakePageSource(intRows(0, 3), nil, intRows(3, 4), intRows(7, 1))
	b := newResultBuffer(context.Background(), src, 2, 8, "job")
	rows, err := readBuffer(t, b)
	assertNilF(t, err)
	assertDeepEqualE(t, rows, intRows(0, 8))
	assertEqualE(t, b.currentState(), streamClosed)

	_, err = b.next(context.Background())
	assertErrIsE(t, err, io.EOF, "the end of stream is sticky")
	waitForProducer(t, b)
	assertTrueE(t, src.closed.Load())
	b.close()
}

func TestResultBufferEmptyResult(t *testing.T) {
	b := newResultBuffer(context.Background(), &inlinePageSource{}, 10, 0, "")
	rows, err := readBuffer(t, b)
	assertNilF(t, err)
	assertEqualE(t, len(rows), 0)
}

func TestResultBufferBackpressure(t *testing.T) {
	pages := make([][]Row, 100)
	for i := range pages {
		pages[i] = intRows(i, 1)
	}
	src := newFakePageSource(pages...)
	const capacity = 5
	b := newResultBuffer(context.Background(), src, capacity, 100, "job")
	defer b.close()

	time.Sleep(100 * time.Millisecond)
	assertLessOrEqualE(t, len(b.items), capacity)
	// one page may be held by the blocked producer
	assertLessOrEqualE(t, int(src.calls.Load()), capacity+1)
	assertEqualE(t, b.currentState(), streamProducing)

	rows, err := readBuffer(t, b)
	assertNilF(t, err)
	assertDeepEqualE(t, rows, intRows(0, 100))
}

func TestResultBufferCloseStopsFetching(t *testing.T) {
	src := newFakePageSource(intRows(0, 10), intRows(10, 10))
	src.block = true
	b := newResultBuffer(context.Background(), src, 4, 1000, "job")

	row, err := b.next(context.Background())
	assertNilF(t, err)
	assertDeepEqualE(t, row, Row{int64(0)})

	b.close()
	select {
	case <-b.done:
	default:
		t.Fatal("close returned before the producer exited")
	}
	calls := src.calls.Load()
	assertTrueE(t, src.closed.Load(), "page source is released")
	time.Sleep(50 * time.Millisecond)
	assertEqualE(t, src.calls.Load(), calls, "no page is fetched after close")

	_, err = b.next(context.Background())
	assertErrIsE(t, err, io.EOF)
	b.close()
}

func TestResultBufferParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := newFakePageSource(intRows(0, 1))
	src.block = true
	b := newResultBuffer(ctx, src, 4, 10, "job")
	row, err := b.next(context.Background())
	assertNilF(t, err)
	assertDeepEqualE(t, row, Row{int64(0)})

	cancel()
	waitForProducer(t, b)
	_, err = b.next(context.Background())
	assertErrIsE(t, err, context.Canceled)
	_, err = b.next(context.Background())
	assertErrIsE(t, err, context.Canceled, "errors are sticky")
}

func TestResultBufferDeliversProducerError(t *testing.T) {
	boom := errors.New("page 2 failed")
	src := newFakePageSource(intRows(0, 2), intRows(2, 2))
	src.errAt = 1
	src.err = boom
	b := newResultBuffer(context.Background(), src, 10, 4, "job")
	rows, err := readBuffer(t, b)
	assertErrIsE(t, err, boom)
	assertDeepEqualE(t, rows, intRows(0, 2), "rows before the failure are delivered")
	_, err = b.next(context.Background())
	assertErrIsE(t, err, boom)
	waitForProducer(t, b)
	assertTrueE(t, src.closed.Load())
}

func TestResultBufferRecoversProducerPanic(t *testing.T) {
	src := newFakePageSource(intRows(0, 1))
	src.panicAt = 0
	b := newResultBuffer(context.Background(), src, 10, 1, "job")
	_, err := b.next(context.Background())
	var be *BigQueryError
	assertErrorsAsF(t, err, &be)
	assertEqualE(t, be.Number, ErrCodeStreamProducer)
	assertEqualE(t, be.JobID, "job")
	waitForProducer(t, b)
	assertTrueE(t, src.closed.Load())
}

func TestResultBufferConsumerContext(t *testing.T) {
	src := newFakePageSource()
	src.block = true
	b := newResultBuffer(context.Background(), src, 1, 0, "job")
	defer b.close()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := b.next(ctx)
	assertErrIsE(t, err, context.DeadlineExceeded)
}

func TestResultBufferRowCountMismatchIsNotAnError(t *testing.T) {
	b := newResultBuffer(context.Background(), newFakePageSource(intRows(0, 2)), 10, 5, "job")
	rows, err := readBuffer(t, b)
	assertNilF(t, err)
	assertEqualE(t, len(rows), 2)
	assertEqualE(t, b.delivered, int64(2))
}

func TestStreamStateString(t *testing.T) {
	assertEqualE(t, streamIdle.String(), "idle")
	assertEqualE(t, streamProducing.String(), "producing")
	assertEqualE(t, streamDraining.String(), "draining")
	assertEqualE(t, streamClosed.String(), "closed")
	assertEqualE(t, streamState(42).String(), "unknown")
}
