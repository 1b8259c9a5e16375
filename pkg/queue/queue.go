package queue

import (
	"context"
	"sync"

	"github.com/kouweizhong/asyncqueues/pkg/race"
)

// ReadReservation is the handle for a set of reserved items, resolved by
// exactly one Release call. It is an alias for the contract the race
// combinator consumes, so a Bounded queue plugs straight into
// race.ReadStarter.
type ReadReservation[T any] = race.Reservation[T]

// Bounded is a capacity-limited producer/consumer queue exposing a two-phase
// reserve/commit protocol on both sides: writers reserve free slots before
// committing values into them, readers reserve buffered items and resolve
// the reservation by consuming some of them and rolling the rest back.
// The conveniences Enqueue and Dequeue wrap the protocol for the common
// single-item case.
//
// All methods are safe for concurrent use. One mutex guards all state;
// blocked acquirers park on signal channels that every state change wakes.
type Bounded[T any] struct {
	mu            sync.Mutex
	buf           []T // visible items only; reserved items live on their reservations
	readHeld      int // items owned by outstanding read reservations
	reservedWrite int
	capacity      int
	closed        bool
	failed        error
	readWaiters   []chan struct{}
	writeWaiters  []chan struct{}
}

// readReservation owns the items its AcquireRead call carved out of the
// buffer. Keeping the items on the reservation, not in shared queue state,
// is what makes out-of-order resolution safe: a rollback can only ever
// restore its own items.
type readReservation[T any] struct {
	q        *Bounded[T]
	items    []T
	resolved bool
}

// Items returns the reserved items. Zero items means the queue reported
// end-of-stream and there is nothing to resolve.
func (r *readReservation[T]) Items() []T {
	return r.items
}

// Release resolves the reservation: n items are consumed for good, freeing n
// capacity units and waking blocked writers, and the remainder is restored
// to the front of the queue in its original order. Release(0) is the full
// rollback. It panics if n exceeds the reservation's size or if the
// reservation was already resolved; releasing an empty end-of-stream
// reservation is a no-op.
func (r *readReservation[T]) Release(n int) {
	q := r.q
	q.mu.Lock()
	defer q.mu.Unlock()

	if r.resolved {
		panic("queue: read reservation already resolved")
	}
	if n < 0 || n > len(r.items) {
		panic("queue: Release count exceeds reservation")
	}
	if len(r.items) == 0 {
		return
	}
	r.resolved = true
	q.readHeld -= len(r.items)

	rest := r.items[n:]
	if len(rest) > 0 {
		restored := make([]T, 0, len(rest)+len(q.buf))
		restored = append(restored, rest...)
		q.buf = append(restored, q.buf...)
		q.notify(&q.readWaiters)
	} else if q.closed && q.reservedWrite == 0 && q.readHeld == 0 && len(q.buf) == 0 {
		// Nothing restored and nothing can arrive; drained readers can now
		// observe end-of-stream.
		q.notify(&q.readWaiters)
	}
	if n > 0 {
		q.notify(&q.writeWaiters)
	}
	r.items = nil
}

// NewBounded creates a queue holding at most capacity items.
// It panics if capacity is not positive.
func NewBounded[T any](capacity int) *Bounded[T] {
	if capacity <= 0 {
		panic("queue: capacity must be positive")
	}
	return &Bounded[T]{capacity: capacity}
}

// Cap returns the queue's capacity.
func (q *Bounded[T]) Cap() int {
	return q.capacity
}

// Len returns the number of items currently buffered, including items held
// by outstanding read reservations.
func (q *Bounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf) + q.readHeld
}

// AcquireRead suspends until n items are visible, then reserves them and
// returns the reservation holding them. Reserved items leave the visible
// buffer and stay owned by the reservation until it is resolved with
// Release.
//
// Once the queue is closed, drained, and free of outstanding write or read
// reservations, AcquireRead returns an empty reservation: the end-of-stream
// signal. A closed queue holding fewer than n remaining items reserves and
// returns what is left.
//
// Returns the stored error after Fail, or ctx.Err() if the context is
// cancelled while waiting.
func (q *Bounded[T]) AcquireRead(ctx context.Context, n int) (ReadReservation[T], error) {
	if n <= 0 {
		return &readReservation[T]{q: q}, nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.failed != nil {
			return nil, q.failed
		}

		if len(q.buf) >= n {
			return q.reserve(n), nil
		}

		if q.closed && q.reservedWrite == 0 {
			if len(q.buf) > 0 {
				return q.reserve(len(q.buf)), nil
			}
			if q.readHeld == 0 {
				return &readReservation[T]{q: q}, nil
			}
			// An outstanding reservation may still roll items back; wait
			// for it to resolve before declaring end-of-stream.
		}

		if err := q.wait(ctx, &q.readWaiters); err != nil {
			return nil, err
		}
	}
}

// reserve carves the first k visible items out of the buffer onto a new
// reservation. Caller must hold mu.
func (q *Bounded[T]) reserve(k int) *readReservation[T] {
	items := make([]T, k)
	copy(items, q.buf[:k])
	m := copy(q.buf, q.buf[k:])
	// Zero the vacated tail so consumed values do not stay reachable
	// through the backing array.
	clear(q.buf[m:])
	q.buf = q.buf[:m]
	q.readHeld += k
	return &readReservation[T]{q: q, items: items}
}

// AcquireWrite suspends until n free slots are available and reserves them.
// Each reserved slot must later be resolved with exactly one CompleteWrite
// or CancelWrite call. Returns n on success, ErrClosed after CompleteAdding,
// the stored error after Fail, or ctx.Err() if the context is cancelled
// while waiting.
func (q *Bounded[T]) AcquireWrite(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.failed != nil {
			return 0, q.failed
		}
		if q.closed {
			return 0, ErrClosed
		}

		if q.free() >= n {
			q.reservedWrite += n
			return n, nil
		}

		if err := q.wait(ctx, &q.writeWaiters); err != nil {
			return 0, err
		}
	}
}

// TryAcquireWrite reserves n free slots without blocking. It returns false
// if the slots are not immediately available or the queue is closed or
// failed.
func (q *Bounded[T]) TryAcquireWrite(n int) bool {
	if n <= 0 {
		return true
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.failed != nil || q.closed || q.free() < n {
		return false
	}
	q.reservedWrite += n
	return true
}

// CompleteWrite commits one reserved slot with a value, making it visible to
// readers. It panics if no write reservation is outstanding.
func (q *Bounded[T]) CompleteWrite(v T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.reservedWrite == 0 {
		panic("queue: CompleteWrite without a matching AcquireWrite")
	}
	q.reservedWrite--
	q.buf = append(q.buf, v)
	q.notify(&q.readWaiters)
}

// CancelWrite aborts one reserved slot, returning it to the free pool.
// It panics if no write reservation is outstanding.
func (q *Bounded[T]) CancelWrite() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.reservedWrite == 0 {
		panic("queue: CancelWrite without a matching AcquireWrite")
	}
	q.reservedWrite--
	q.notify(&q.writeWaiters)
	if q.closed && q.reservedWrite == 0 {
		// Last in-flight write is gone; drained readers can now observe
		// end-of-stream.
		q.notify(&q.readWaiters)
	}
}

// CompleteAdding marks the queue closed: subsequent write acquisitions fail
// with ErrClosed, and readers observe end-of-stream once the buffer drains
// and outstanding write reservations resolve. Safe to call more than once.
func (q *Bounded[T]) CompleteAdding() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.notify(&q.readWaiters)
	q.notify(&q.writeWaiters)
}

// Fail poisons the queue: every blocked and future acquisition on either
// side fails with err. The first non-nil error sticks; later calls are
// no-ops.
func (q *Bounded[T]) Fail(err error) {
	if err == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.failed != nil {
		return
	}
	q.failed = err
	q.notify(&q.readWaiters)
	q.notify(&q.writeWaiters)
}

// Enqueue reserves a slot and commits v into it, blocking while the queue is
// full.
func (q *Bounded[T]) Enqueue(ctx context.Context, v T) error {
	if _, err := q.AcquireWrite(ctx, 1); err != nil {
		return err
	}
	q.CompleteWrite(v)
	return nil
}

// Dequeue reserves and consumes one item, blocking while the queue is empty.
// Returns ErrEndOfQueue once the queue is closed and drained.
func (q *Bounded[T]) Dequeue(ctx context.Context) (T, error) {
	var zero T
	res, err := q.AcquireRead(ctx, 1)
	if err != nil {
		return zero, err
	}
	items := res.Items()
	if len(items) == 0 {
		return zero, ErrEndOfQueue
	}
	res.Release(1)
	return items[0], nil
}

// free reports unreserved capacity. Caller must hold mu.
func (q *Bounded[T]) free() int {
	return q.capacity - len(q.buf) - q.readHeld - q.reservedWrite
}

// notify wakes every parked waiter on list. Caller must hold mu.
func (q *Bounded[T]) notify(list *[]chan struct{}) {
	for _, w := range *list {
		close(w)
	}
	*list = nil
}

// wait parks the caller on list until the next state change or context
// cancellation. Caller must hold mu; the lock is released while parked and
// reacquired before returning.
func (q *Bounded[T]) wait(ctx context.Context, list *[]chan struct{}) error {
	w := make(chan struct{})
	*list = append(*list, w)

	q.mu.Unlock()
	defer q.mu.Lock()

	select {
	case <-w:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
