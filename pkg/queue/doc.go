// Package queue provides a bounded in-memory producer/consumer queue built
// around an explicit two-phase capacity protocol.
//
// The central type is the generic Bounded queue. Writers first reserve a free
// slot with AcquireWrite (or its non-blocking variant TryAcquireWrite) and
// then either commit a value into it with CompleteWrite or give it back with
// CancelWrite. Readers symmetrically reserve buffered items with AcquireRead,
// which returns a ReadReservation owning the reserved items, and resolve it
// with Release, stating how many of the reserved items they actually
// consumed – Release(0) is a full rollback that makes the reservation's own
// items visible to other readers again.
//
// Exposing reservation and resolution as separate steps is what lets a
// higher-level combinator race several queue operations and cleanly unwind
// the ones that lose: a reservation can always be handed to the
// github.com/kouweizhong/asyncqueues/pkg/race package as a two-phase result
// whose Commit finalises it and whose Abort rolls it back. DequeueAny and
// EnqueueAny in this package do exactly that, consuming from or producing to
// whichever of several queues is ready first.
//
// For plain single-item use the Enqueue and Dequeue helpers hide the
// protocol entirely:
//
//	q := queue.NewBounded[int](8)
//
//	go func() {
//	    for i := range 100 {
//	        _ = q.Enqueue(ctx, i)
//	    }
//	    q.CompleteAdding()
//	}()
//
//	for {
//	    v, err := q.Dequeue(ctx)
//	    if errors.Is(err, queue.ErrEndOfQueue) {
//	        break
//	    }
//	    // … use v …
//	}
//
// # Lifecycle
//
// CompleteAdding closes the queue for new writes; readers drain the
// remaining items and then observe end-of-stream (AcquireRead returns an
// empty reservation, Dequeue returns ErrEndOfQueue). Fail poisons the queue so that
// every blocked and future acquisition on either side surfaces the supplied
// error; it is meant for tearing the pipeline down when the producer hits an
// unrecoverable fault.
//
// # Ordering
//
// Each reservation owns the items it reserved, so concurrent overlapping
// reservations resolve independently in any order without duplicating or
// dropping items; a rollback restores exactly the reservation's own items,
// in order, to the front of the queue. Delivery is FIFO among sequential
// readers, but readers racing on one queue may consume out of order, and
// fairness among waiters blocked on the same queue is not guaranteed.
package queue
