package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kouweizhong/asyncqueues/pkg/queue"
	"github.com/kouweizhong/asyncqueues/pkg/race"
)

func TestDequeueAny(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("picks the queue with an item", func(t *testing.T) {
		t.Parallel()
		empty := queue.NewBounded[string](1)
		ready := queue.NewBounded[string](1)
		require.NoError(t, ready.Enqueue(ctx, "hello"))

		idx, v, err := queue.DequeueAny(ctx, empty, ready)
		require.NoError(t, err)
		assert.Equal(t, 1, idx)
		assert.Equal(t, "hello", v)

		// The losing queue keeps its capacity untouched.
		require.NoError(t, empty.Enqueue(ctx, "later"))
	})

	t.Run("waits until any queue can answer", func(t *testing.T) {
		t.Parallel()
		a := queue.NewBounded[int](1)
		b := queue.NewBounded[int](1)

		type result struct {
			idx int
			v   int
			err error
		}
		results := make(chan result, 1)
		go func() {
			idx, v, err := queue.DequeueAny(ctx, a, b)
			results <- result{idx, v, err}
		}()

		select {
		case <-results:
			t.Fatal("DequeueAny returned with both queues empty")
		case <-time.After(30 * time.Millisecond):
		}

		require.NoError(t, b.Enqueue(ctx, 7))

		select {
		case r := <-results:
			require.NoError(t, r.err)
			assert.Equal(t, 1, r.idx)
			assert.Equal(t, 7, r.v)
		case <-time.After(time.Second):
			t.Fatal("DequeueAny stayed blocked after an item arrived")
		}
	})

	t.Run("end of stream", func(t *testing.T) {
		t.Parallel()
		a := queue.NewBounded[int](1)
		b := queue.NewBounded[int](1)
		a.CompleteAdding()
		b.CompleteAdding()

		_, _, err := queue.DequeueAny(ctx, a, b)
		assert.ErrorIs(t, err, queue.ErrEndOfQueue)
	})

	t.Run("cancellation", func(t *testing.T) {
		t.Parallel()
		a := queue.NewBounded[int](1)

		waitCtx, cancel := context.WithCancel(ctx)
		errs := make(chan error, 1)
		go func() {
			_, _, err := queue.DequeueAny(waitCtx, a)
			errs <- err
		}()

		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case err := <-errs:
			assert.ErrorIs(t, err, race.ErrCancelled)
		case <-time.After(time.Second):
			t.Fatal("DequeueAny stayed blocked after cancellation")
		}
	})

	t.Run("failed queue faults the read", func(t *testing.T) {
		t.Parallel()
		a := queue.NewBounded[int](1)
		boom := errors.New("boom")

		errs := make(chan error, 1)
		go func() {
			_, _, err := queue.DequeueAny(ctx, a)
			errs <- err
		}()

		time.Sleep(20 * time.Millisecond)
		a.Fail(boom)

		select {
		case err := <-errs:
			assert.ErrorIs(t, err, boom)

			var opErr *race.OpError
			require.ErrorAs(t, err, &opErr)
			assert.Equal(t, 0, opErr.Key)
		case <-time.After(time.Second):
			t.Fatal("DequeueAny stayed blocked after Fail")
		}
	})

	t.Run("no queues", func(t *testing.T) {
		t.Parallel()
		_, _, err := queue.DequeueAny[int](ctx)
		assert.ErrorIs(t, err, race.ErrNoStarters)
	})
}

func TestEnqueueAny(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("picks the queue with a free slot", func(t *testing.T) {
		t.Parallel()
		full := queue.NewBounded[string](1)
		require.NoError(t, full.Enqueue(ctx, "occupied"))
		free := queue.NewBounded[string](1)

		idx, err := queue.EnqueueAny(ctx, "hello", full, free)
		require.NoError(t, err)
		assert.Equal(t, 1, idx)

		v, err := free.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, "hello", v)
	})

	t.Run("waits until any queue has capacity", func(t *testing.T) {
		t.Parallel()
		a := queue.NewBounded[int](1)
		b := queue.NewBounded[int](1)
		require.NoError(t, a.Enqueue(ctx, 1))
		require.NoError(t, b.Enqueue(ctx, 2))

		type result struct {
			idx int
			err error
		}
		results := make(chan result, 1)
		go func() {
			idx, err := queue.EnqueueAny(ctx, 99, a, b)
			results <- result{idx, err}
		}()

		select {
		case <-results:
			t.Fatal("EnqueueAny returned with both queues full")
		case <-time.After(30 * time.Millisecond):
		}

		v, err := b.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, v)

		select {
		case r := <-results:
			require.NoError(t, r.err)
			assert.Equal(t, 1, r.idx)
		case <-time.After(time.Second):
			t.Fatal("EnqueueAny stayed blocked after capacity freed up")
		}

		v, err = b.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 99, v)
	})

	t.Run("losing reservation is released", func(t *testing.T) {
		t.Parallel()
		a := queue.NewBounded[int](1)
		b := queue.NewBounded[int](1)

		// Both have capacity; the first wins, the second must end up
		// untouched with its full capacity available.
		idx, err := queue.EnqueueAny(ctx, 5, a, b)
		require.NoError(t, err)
		assert.Equal(t, 0, idx)

		assert.Equal(t, 0, b.Len())
		require.NoError(t, b.Enqueue(ctx, 6))
	})

	t.Run("closed queue faults the write", func(t *testing.T) {
		t.Parallel()
		a := queue.NewBounded[int](1)
		a.CompleteAdding()

		_, err := queue.EnqueueAny(ctx, 1, a)
		assert.ErrorIs(t, err, queue.ErrClosed)

		var opErr *race.OpError
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, 0, opErr.Key)
	})
}
