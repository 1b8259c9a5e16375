// Package race races a heterogeneous set of cancellable asynchronous
// operations and commits exactly one winner, guaranteeing that every losing
// operation's reserved resources are released.
//
// Operations follow a two-phase protocol: an operation's asynchronous work
// produces a TwoPhase result that must subsequently be either committed
// (finalising side effects and yielding the operation's value) or aborted
// (undoing the reservation it holds). The combinator CompleteAny starts
// every operation in an ordered List, detects the first to finish – whether
// that happens synchronously during start-up or asynchronously later –
// commits that one, cancels and aborts all others, and resolves a single
// future with the winner's key and value. Faults are aggregated from every
// branch, not only the winner: a race with any faulted operation never
// resolves successfully.
//
// The package also provides the adapters that turn bounded-queue operations
// into racable starters. ReadStarter wraps "reserve one item" and
// WriteStarter wraps "reserve one free slot"; together with CompleteAny they
// implement a multi-way select over queue operations:
//
//	list := race.List[string, int]{}.
//	    Add("read", race.ReadStarter(q, convert, -1)).
//	    AddIf(havePayload, "write", race.WriteStarter[payload, int](q2, p, 1))
//
//	sel, err := race.CompleteAny(ctx, list).Await()
//
// The queue collaborator itself is abstracted behind the Reader and Writer
// interfaces; github.com/kouweizhong/asyncqueues/pkg/queue provides the
// in-memory implementation.
//
// # Concurrency
//
// Operations run as independent goroutines. All race-decision state is
// serialised through one mutex, so the combinator is correct under arbitrary
// interleaving of the start loop, completion callbacks, and the external
// cancellation callback. Cancellation of losers is best-effort: the race
// always waits for every started operation to reach a terminal state before
// resolving, which is what makes the commit-or-abort-exactly-once guarantee
// possible.
//
// # Errors
//
// A single faulted operation surfaces as *OpError; several fault together as
// an errors.Join of OpErrors in slot order. ErrCancelled reports the race's
// own context being cancelled before a decision. An operation whose own task
// ends cancelled is not a fault and never wins; if every operation drains
// that way the race fails with ErrNoWinner, and an empty list fails with
// ErrNoStarters.
package race
