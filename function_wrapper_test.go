package gobq

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestGoWrapper(t *testing.T) {
	oldGoroutineWrapper := GoroutineWrapper
	t.Cleanup(func() {
		GoroutineWrapper = oldGoroutineWrapper
	})

	var goWrapperCalled atomic.Bool
	GoroutineWrapper = func(ctx context.Context, f func()) {
		goWrapperCalled.Store(true)
		f()
	}

	rows := newTestRows(intSchema("n"), intRows(0, 1))
	defer rows.Close()
	out, err := drain(t, rows)
	assertNilF(t, err)
	assertEqualE(t, len(out), 1)
	assertTrueF(t, goWrapperCalled.Load(), "the row producer should run through the wrapper")
}
