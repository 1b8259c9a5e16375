package race

import (
	"errors"
	"fmt"
)

var (
	// ErrNoStarters is returned when CompleteAny is called with an empty
	// list.
	ErrNoStarters = errors.New("race: no starters provided")

	// ErrCancelled is returned when the race's context is cancelled before
	// any operation wins. Callers typically treat it as routine shutdown.
	ErrCancelled = errors.New("race: cancelled before a winner was decided")

	// ErrNoWinner is returned when every operation's own task ended
	// cancelled, so the race drained without a committed result and without
	// the race-level context having been cancelled.
	ErrNoWinner = errors.New("race: every operation ended without producing a result")
)

// OpError reports the fault of a single race operation, identified by its
// entry key. When several operations fault in one race, CompleteAny joins
// their OpErrors in slot order.
type OpError struct {
	Key any
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("race: operation %v: %v", e.Key, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
