package queue

import (
	"context"

	"github.com/kouweizhong/asyncqueues/pkg/race"
)

// readResult carries one DequeueAny branch outcome: either a value or the
// end-of-stream marker.
type readResult[T any] struct {
	value T
	eof   bool
}

// DequeueAny races a read against every queue and consumes exactly one item
// from whichever can deliver first, returning the index of that queue and the
// item. Reads reserved on the losing queues are rolled back, so no item is
// lost. Returns ErrEndOfQueue if the first queue able to answer is closed and
// drained, and ctx.Err()-based failure if ctx is cancelled before any queue
// answers.
func DequeueAny[T any](ctx context.Context, queues ...*Bounded[T]) (int, T, error) {
	var zero T

	var list race.List[int, readResult[T]]
	for i, q := range queues {
		list = list.Add(i, race.ReadStarter(q, func(v T) readResult[T] {
			return readResult[T]{value: v}
		}, readResult[T]{eof: true}))
	}

	sel, err := race.CompleteAny(ctx, list).Await()
	if err != nil {
		return -1, zero, err
	}
	if sel.Value.eof {
		return sel.Key, zero, ErrEndOfQueue
	}
	return sel.Key, sel.Value.value, nil
}

// EnqueueAny races a write of v against every queue and commits it into
// whichever has a free slot first, returning that queue's index. Slots
// reserved on the losing queues are released without writing.
func EnqueueAny[T any](ctx context.Context, v T, queues ...*Bounded[T]) (int, error) {
	var list race.List[int, bool]
	for i, q := range queues {
		list = list.Add(i, race.WriteStarter[T, bool](q, v, true))
	}

	sel, err := race.CompleteAny(ctx, list).Await()
	if err != nil {
		return -1, err
	}
	return sel.Key, nil
}
