package queue

import "errors"

var (
	// ErrClosed is returned when a write is attempted after CompleteAdding.
	ErrClosed = errors.New("queue: closed for adding")

	// ErrEndOfQueue is returned by Dequeue and DequeueAny once a closed
	// queue has been fully drained.
	ErrEndOfQueue = errors.New("queue: end of queue")
)
