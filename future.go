package asyncfsm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Future is the eventual outcome of an asynchronous operation. It settles
// exactly once, either resolved (nil error) or rejected.
type Future struct {
	mu      sync.Mutex
	done    chan struct{}
	err     error
	settled bool
	waiters []func(error)

	// owner is the machine that created the future, if any. Set before the
	// future is published and never changed.
	owner *Machine
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns an already resolved future
func Resolved() *Future {
	f := newFuture()
	f.settle(nil)
	return f
}

// Rejected returns a future already rejected with err
func Rejected(err error) *Future {
	f := newFuture()
	f.settle(err)
	return f
}

// NewDeferred returns a pending future together with the function that
// settles it. Calls after the first are ignored.
func NewDeferred() (*Future, func(err error)) {
	f := newFuture()
	return f, func(err error) { f.settle(err) }
}

// Go runs fn in its own goroutine and returns a future settled with its
// result. A panic in fn rejects the future.
func Go(fn func() error) *Future {
	f := newFuture()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				f.settle(fmt.Errorf("async function panicked: %v", r))
			}
		}()
		f.settle(fn())
	}()
	return f
}

// All returns a future that resolves once every future in fs has resolved,
// or rejects with the first failure observed. nil entries count as resolved.
func All(fs ...*Future) *Future {
	if len(fs) == 0 {
		return Resolved()
	}

	agg := newFuture()
	remaining := int64(len(fs))
	for _, f := range fs {
		if f == nil {
			if atomic.AddInt64(&remaining, -1) == 0 {
				agg.settle(nil)
			}
			continue
		}
		f.OnSettle(func(err error) {
			if err != nil {
				agg.settle(err)
				return
			}
			if atomic.AddInt64(&remaining, -1) == 0 {
				agg.settle(nil)
			}
		})
	}
	return agg
}

// settle records the outcome and runs the registered callbacks. It reports
// whether this call settled the future.
func (f *Future) settle(err error) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.err = err
	waiters := f.waiters
	f.waiters = nil
	close(f.done)
	f.mu.Unlock()

	for _, w := range waiters {
		w(err)
	}
	return true
}

// OnSettle registers fn to run with the outcome. If the future has already
// settled fn runs immediately in the calling goroutine; otherwise it runs in
// the goroutine that settles the future.
func (f *Future) OnSettle(fn func(err error)) {
	f.mu.Lock()
	if !f.settled {
		f.waiters = append(f.waiters, fn)
		f.mu.Unlock()
		return
	}
	err := f.err
	f.mu.Unlock()
	fn(err)
}

// Await waits for the future to settle and returns its error. If ctx is done
// first, Await returns ctx.Err(); the underlying operation keeps running.
func (f *Future) Await(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until the future settles and returns its error
func (f *Future) Wait() error {
	<-f.done
	return f.err
}

// Done returns a channel closed once the future settles
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Err returns the rejection reason, or nil while pending or once resolved
func (f *Future) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// IsComplete reports whether the future has settled, without blocking
func (f *Future) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
