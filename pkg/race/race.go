package race

import (
	"context"
	"errors"
	"sync"

	"github.com/kouweizhong/asyncqueues/pkg/async"
)

// Starter begins one cancellable operation. The combinator calls each
// starter at most once per race, passing a context derived from the race's
// own; cancelling that context is how the race unwinds a losing operation.
// The returned future must reach a terminal state eventually: a TwoPhase
// result on success, an error satisfying async.IsCancellation when the
// operation was cancelled, or any other error when it faulted.
type Starter[V any] func(ctx context.Context) *async.Future[TwoPhase[V]]

// Entry pairs a starter with the key CompleteAny reports if that operation
// wins.
type Entry[K comparable, V any] struct {
	Key   K
	Start Starter[V]
}

// List is an ordered set of race entries. Order matters: among operations
// that complete synchronously during the start loop, the earliest entry wins
// and later entries are never started.
type List[K comparable, V any] []Entry[K, V]

// Add appends an entry and returns the extended list.
func (l List[K, V]) Add(key K, s Starter[V]) List[K, V] {
	return append(l, Entry[K, V]{Key: key, Start: s})
}

// AddIf appends an entry only when cond is true, so callers can build a race
// from optional branches in a single chain.
func (l List[K, V]) AddIf(cond bool, key K, s Starter[V]) List[K, V] {
	if !cond {
		return l
	}
	return l.Add(key, s)
}

// Selected is the outcome of a race: the winning entry's key and the value
// its committed result produced.
type Selected[K comparable, V any] struct {
	Key   K
	Value V
}

// op is one started slot: the operation's future plus the exclusively owned
// cancellation handle for its context.
type op[V any] struct {
	future *async.Future[TwoPhase[V]]
	cancel context.CancelFunc
}

// raceState is all cross-slot mutable state of one race. Every field below
// mu is guarded by it; completion callbacks, the external cancellation
// callback, and the start loop all serialise through this one lock.
type raceState[K comparable, V any] struct {
	ctx     context.Context
	entries List[K, V]
	resolve func(Selected[K, V], error)
	stop    func() bool

	mu        sync.Mutex
	ops       []*op[V]
	errs      []error
	pending   int
	winner    int
	winVal    V
	haveVal   bool
	decided   bool
	cancelled bool
	startDone bool
	delivered bool
}

// CompleteAny starts every operation in the list, commits the first to
// finish, aborts the rest, and resolves the returned future with the
// winner's key and value.
//
// The guarantees, over one race:
//
//   - Every TwoPhase result any started operation produces is committed or
//     aborted exactly once, on every exit path.
//   - If any operation faults (winner included), the race never resolves
//     successfully: it fails with that operation's *OpError, or with an
//     errors.Join of several in slot order.
//   - If ctx is cancelled before a winner is decided, the race fails with
//     ErrCancelled and every running operation is asked to cancel.
//   - An operation whose own task ends cancelled never wins; a race whose
//     operations all end that way fails with ErrNoWinner.
//   - An empty list fails immediately with ErrNoStarters.
//
// Cancellation of losing operations is a request, not a guarantee of
// immediate termination: the race waits for every started operation to reach
// a terminal state before resolving.
func CompleteAny[K comparable, V any](ctx context.Context, list List[K, V]) *async.Future[Selected[K, V]] {
	future, resolve := async.Promise[Selected[K, V]]()

	if len(list) == 0 {
		var zero Selected[K, V]
		resolve(zero, ErrNoStarters)
		return future
	}

	r := &raceState[K, V]{
		ctx:     ctx,
		entries: list,
		resolve: resolve,
		ops:     make([]*op[V], len(list)),
		errs:    make([]error, len(list)),
	}
	r.stop = context.AfterFunc(ctx, r.externalCancel)

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, entry := range list {
		opCtx, cancel := context.WithCancel(ctx)
		o := &op[V]{future: entry.Start(opCtx), cancel: cancel}
		r.ops[i] = o

		if o.future.IsComplete() {
			if _, err := o.future.Await(); err != nil && async.IsCancellation(err) {
				// The operation cancelled itself before doing anything; it
				// is not winner-eligible, so keep starting later entries.
				r.errs[i] = err
				continue
			}
			// Synchronous completion: this slot wins by construction, since
			// no later slot has had a chance to race it.
			r.handleTerminal(i)
			break
		}

		r.pending++
		o.future.OnComplete(func(TwoPhase[V], error) {
			r.opComplete(i)
		})
	}

	r.startDone = true
	if r.pending == 0 {
		r.deliver()
	}

	return future
}

// opComplete is the continuation attached to each asynchronously completing
// operation.
func (r *raceState[K, V]) opComplete(i int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending--
	r.handleTerminal(i)
}

// handleTerminal processes slot i having reached a terminal state. Caller
// must hold mu.
func (r *raceState[K, V]) handleTerminal(i int) {
	res, err := r.ops[i].future.Await()
	r.errs[i] = err

	switch {
	case r.decided:
		if err == nil {
			// A result that lost the race still holds a reservation; abort
			// it rather than dropping it.
			res.Abort()
		}
	case err != nil && async.IsCancellation(err):
		// A branch's own cancellation never decides the race.
	default:
		r.decided = true
		r.winner = i
		if err == nil {
			r.winVal = res.Commit()
			r.haveVal = true
		}
		r.unwind(i)
	}

	if r.pending == 0 && (r.decided || r.startDone) {
		r.deliver()
	}
}

// externalCancel runs when the race's context is cancelled. If no winner has
// been decided yet, the whole race is decided cancelled and every running
// operation is unwound; after a decision it does nothing, since losing
// operations are already being cancelled.
func (r *raceState[K, V]) externalCancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.decided || r.delivered {
		return
	}
	r.decided = true
	r.cancelled = true
	r.unwind(-1)

	if r.pending == 0 && r.startDone {
		r.deliver()
	}
}

// unwind requests cancellation on every started, not yet ended slot other
// than the winner. Caller must hold mu.
func (r *raceState[K, V]) unwind(winner int) {
	for i, o := range r.ops {
		if o == nil || i == winner {
			continue
		}
		if !o.future.IsComplete() {
			o.cancel()
		}
	}
}

// deliver resolves the race's future exactly once, after every started slot
// has reached a terminal state. Caller must hold mu.
func (r *raceState[K, V]) deliver() {
	if r.delivered {
		return
	}
	r.delivered = true

	// Collect faults across every slot, winner and losers alike, in slot
	// order. A branch's own cancellation is a terminal state, not a fault.
	var faults []error
	for i, err := range r.errs {
		if err != nil && !async.IsCancellation(err) {
			faults = append(faults, &OpError{Key: r.entries[i].Key, Err: err})
		}
	}

	// Release each started operation's cancellation handle, and the
	// registration on the external signal, exactly once.
	for _, o := range r.ops {
		if o != nil {
			o.cancel()
		}
	}
	r.stop()

	var zero Selected[K, V]
	switch {
	case len(faults) == 1:
		r.resolve(zero, faults[0])
	case len(faults) > 1:
		r.resolve(zero, errors.Join(faults...))
	case r.cancelled:
		r.resolve(zero, ErrCancelled)
	case r.haveVal:
		r.resolve(Selected[K, V]{Key: r.entries[r.winner].Key, Value: r.winVal}, nil)
	case r.ctx.Err() != nil:
		// Every slot drained through cancellation caused by the external
		// signal before the signal's own callback could take the lock.
		r.resolve(zero, ErrCancelled)
	default:
		// Every slot ended in its own cancellation with nothing committed.
		r.resolve(zero, ErrNoWinner)
	}
}
