package async

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Future represents the result of an asynchronous computation.
type Future[U any] struct {
	result U
	err    error
	once   sync.Once
	done   chan struct{}
}

// Await waits for the asynchronous computation to complete and returns its result and error.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.result, f.err
}

// AwaitWithTimeout waits for the asynchronous computation to complete with a timeout.
// Returns the result and error if the computation completes before the timeout.
// If the timeout occurs before completion, returns a timeout error.
func (f *Future[U]) AwaitWithTimeout(timeout time.Duration) (U, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-time.After(timeout):
		var zero U
		return zero, ErrTimeout
	}
}

// IsComplete checks if the asynchronous computation is complete without blocking.
// Returns true if the computation has completed, false otherwise.
func (f *Future[U]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// OnComplete registers fn to run exactly once when the future reaches a
// terminal state, receiving the final result and error. The callback runs on
// its own goroutine; if the future is already complete it fires immediately.
// Each registration fires independently.
func (f *Future[U]) OnComplete(fn func(U, error)) {
	go func() {
		<-f.done
		fn(f.result, f.err)
	}()
}

func (f *Future[U]) complete(result U, err error) {
	f.once.Do(func() {
		f.result = result
		f.err = err
		close(f.done)
	})
}

// Async executes a function asynchronously and returns a Future.
// The function accepts a context.Context and a parameter of any type T, and returns (U, error).
// If the context is already cancelled, the function is never invoked and the
// Future completes with the context error.
func Async[T any, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}

	go func() {
		// Early exit prevents starting work when the context is pre-cancelled
		select {
		case <-ctx.Done():
			var zero U
			f.complete(zero, ctx.Err())
			return
		default:
		}

		res, err := fn(ctx, param)
		f.complete(res, err)
	}()

	return f
}

// Promise creates a Future together with its resolver. The resolver completes
// the Future with a result and error; only the first call takes effect, so it
// is safe to resolve from competing goroutines.
func Promise[U any]() (*Future[U], func(U, error)) {
	f := &Future[U]{done: make(chan struct{})}
	return f, f.complete
}

// Resolved returns a Future that is already complete with the given result.
func Resolved[U any](result U) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}
	f.complete(result, nil)
	return f
}

// Failed returns a Future that is already complete with the given error.
func Failed[U any](err error) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}
	var zero U
	f.complete(zero, err)
	return f
}

// IsCancellation reports whether err represents a cancelled computation
// rather than a genuine fault. A Future whose error satisfies IsCancellation
// terminated because its context was cancelled or its deadline passed.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// WaitAll waits for all futures to complete and returns a slice of their results and an error
// if any of the futures returned an error.
func WaitAll[U any](futures ...*Future[U]) ([]U, error) {
	results := make([]U, len(futures))

	for i, future := range futures {
		result, err := future.Await()
		results[i] = result
		if err != nil {
			return results, err
		}
	}

	return results, nil
}

// WaitAny waits for any of the futures to complete and returns the index of the completed future,
// its result, and any error it might have returned.
// Note: This function spawns one goroutine per future. All goroutines will complete naturally
// when their respective futures finish.
func WaitAny[U any](futures ...*Future[U]) (int, U, error) {
	if len(futures) == 0 {
		var zero U
		return -1, zero, ErrNoFutures
	}

	done := make(chan struct {
		index  int
		result U
		err    error
	})

	for i, future := range futures {
		go func(index int, f *Future[U]) {
			result, err := f.Await()
			select {
			case done <- struct {
				index  int
				result U
				err    error
			}{index, result, err}:
			default:
				// Another future already won; its sender delivered first.
			}
		}(i, future)
	}

	res := <-done
	return res.index, res.result, res.err
}
