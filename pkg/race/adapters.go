package race

import (
	"context"

	"github.com/kouweizhong/asyncqueues/pkg/async"
)

// Reservation is the handle for items reserved from a queue's read side.
// Items returns the reserved items; zero items means the queue reported
// end-of-stream. Release resolves the reservation exactly once, consuming n
// of the reserved items and restoring the rest to the queue. Each
// reservation owns its items, so concurrent reservations on one queue
// resolve independently in any order.
type Reservation[U any] interface {
	Items() []U
	Release(n int)
}

// Reader is the read side of the bounded queue contract the adapters
// consume. AcquireRead suspends until n items can be reserved and returns
// the reservation holding them.
type Reader[U any] interface {
	AcquireRead(ctx context.Context, n int) (Reservation[U], error)
}

// Writer is the write side of the bounded queue contract. AcquireWrite
// suspends until n free slots are reserved; TryAcquireWrite is its
// non-blocking variant. Each reserved slot is resolved by exactly one
// CompleteWrite (commit a value) or CancelWrite (release unwritten).
type Writer[U any] interface {
	AcquireWrite(ctx context.Context, n int) (int, error)
	TryAcquireWrite(n int) bool
	CompleteWrite(v U)
	CancelWrite()
}

// ReadStarter returns a starter that reserves one item from q. A reserved
// item commits to convert(item); an end-of-stream observation commits to the
// supplied eof value without having consumed anything. Queue faults fail the
// operation; cancellation of the operation's context ends it without a
// result.
func ReadStarter[U, V any](q Reader[U], convert func(U) V, eof V) Starter[V] {
	return func(ctx context.Context) *async.Future[TwoPhase[V]] {
		return async.Async(ctx, q, func(ctx context.Context, q Reader[U]) (TwoPhase[V], error) {
			res, err := q.AcquireRead(ctx, 1)
			if err != nil {
				return nil, err
			}
			items := res.Items()
			if len(items) == 0 {
				return readEOF[V]{value: eof}, nil
			}
			return readHit[U, V]{res: res, item: items[0], convert: convert}, nil
		})
	}
}

// WriteStarter returns a starter that reserves one free slot on q and, on
// commit, writes value into it and yields the success sentinel. When a slot
// is free at start time the reservation is taken eagerly and the returned
// future is already complete, which lets the combinator's start loop pick
// the operation as a synchronous winner.
func WriteStarter[U, V any](q Writer[U], value U, success V) Starter[V] {
	return func(ctx context.Context) *async.Future[TwoPhase[V]] {
		if ctx.Err() == nil && q.TryAcquireWrite(1) {
			return async.Resolved[TwoPhase[V]](writeCommit[U, V]{q: q, value: value, success: success})
		}
		return async.Async(ctx, q, func(ctx context.Context, q Writer[U]) (TwoPhase[V], error) {
			if _, err := q.AcquireWrite(ctx, 1); err != nil {
				return nil, err
			}
			return writeCommit[U, V]{q: q, value: value, success: success}, nil
		})
	}
}
