package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/finch-technologies/go-queue/queue/types"
)

// Stream pulls messages from the queue one at a time, retrying empty polls
// forever. Empty polls are not failures: Next keeps waiting through them, so
// the cadence between polls on an idle queue is the driver's long poll
// window. A Stream is restartable, after Next returns a message the next
// call simply picks up polling again, there is no cursor state.
type Stream[T any] struct {
	queue *Queue[T]
	opts  types.DequeueOptions

	mu  sync.Mutex
	err error
}

// Stream returns a pull stream over the queue. Pass a LockDuration to extend
// the visibility lock on each message the stream yields, the default is a
// point read with no extended lock.
func (q *Queue[T]) Stream(options ...types.DequeueOptions) *Stream[T] {
	var opts types.DequeueOptions

	if len(options) > 0 {
		opts = options[0]
	}

	return &Stream[T]{queue: q, opts: opts}
}

// Next blocks until a message arrives or the stream fails. Queue errors are
// terminal: once Next returns one, the stream is dead and every later call
// returns the same error. Context cancellation is not terminal, it only ends
// the current wait and the stream can be resumed with a live context.
//
// Next serializes callers, the stream is a single consumer abstraction.
func (s *Stream[T]) Next(ctx context.Context) (*Message[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		message, err := s.queue.DequeueOne(ctx, s.opts)

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}

			s.err = err

			return nil, err
		}

		if message != nil {
			return message, nil
		}
	}
}

// Err returns the terminal stream error, or nil while the stream is live.
func (s *Stream[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}
