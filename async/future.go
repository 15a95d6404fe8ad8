package async

import (
	"context"
	"sync"
	"time"

	"github.com/wippyai/speech-runtime/errors"
)

// Future is a single-slot result cell written at most once.
type Future[R any] struct {
	value   R
	err     error
	done    chan struct{}
	release func()
	id      uint64
	mu      sync.Mutex
	written bool
}

func newFuture[R any](id uint64) *Future[R] {
	return &Future[R]{
		id:   id,
		done: make(chan struct{}),
	}
}

// Resolved returns a future already holding value and err.
func Resolved[R any](value R, err error) *Future[R] {
	f := newFuture[R](0)
	f.resolve(value, err)
	return f
}

// ID returns the operation id assigned by the bridge.
func (f *Future[R]) ID() uint64 {
	return f.id
}

// Done is closed once the terminal value has been written.
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// Resolved reports whether the terminal value has been written.
func (f *Future[R]) Resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// resolve writes the terminal value if the cell is empty and reports
// whether this call was the one that wrote it.
func (f *Future[R]) resolve(value R, err error) bool {
	f.mu.Lock()
	if f.written {
		f.mu.Unlock()
		return false
	}
	f.written = true
	f.value = value
	f.err = err
	release := f.release
	f.release = nil
	f.mu.Unlock()

	close(f.done)
	if release != nil {
		release()
	}
	return true
}

// Get blocks until the future resolves or ctx is done. A context deadline
// yields errors.ErrTimeout and any other cancellation errors.ErrCanceled;
// in both cases the future stays awaitable.
func (f *Future[R]) Get(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
	}

	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero R
		if ctx.Err() == context.DeadlineExceeded {
			return zero, errors.Timeout(errors.PhaseAwait, 0, ctx.Err())
		}
		return zero, errors.Canceled(errors.PhaseAwait, ctx.Err())
	}
}

// GetTimeout blocks until the future resolves or d elapses.
// A non-positive d waits without limit.
func (f *Future[R]) GetTimeout(d time.Duration) (R, error) {
	if d <= 0 {
		<-f.done
		return f.value, f.err
	}

	select {
	case <-f.done:
		return f.value, f.err
	default:
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.value, f.err
	case <-timer.C:
		var zero R
		return zero, errors.Timeout(errors.PhaseAwait, d, nil)
	}
}

// Wait is Get without the value.
func (f *Future[R]) Wait(ctx context.Context) error {
	_, err := f.Get(ctx)
	return err
}
