package gobq

import "context"

// GoroutineWrapperFunc wraps the body of every goroutine the package starts,
// such as the row producer of a result stream.
type GoroutineWrapperFunc func(ctx context.Context, f func())

var defaultDoesNothing = func(_ context.Context, f func()) {
	f()
}

// GoroutineWrapper can be replaced to propagate tracing or pprof labels into
// producer goroutines. It must call f.
var GoroutineWrapper GoroutineWrapperFunc = defaultDoesNothing
