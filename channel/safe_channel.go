package channels

import (
	"context"
	"errors"
	"sync"

	"github.com/finch-technologies/go-queue/log"
	"github.com/finch-technologies/go-queue/utils"
)

var ErrClosed = errors.New("channel is closed")

// SafeChannel is a channel that tolerates racing writers and closers. Closing
// twice is a no-op, writing after close returns ErrClosed instead of
// panicking, and the channel closes itself when its context ends.
type SafeChannel[T any] struct {
	mu     sync.Mutex
	closed bool
	ch     chan T
	ctx    context.Context
}

func New[T any](ctx context.Context, size ...int) *SafeChannel[T] {
	sc := &SafeChannel[T]{ctx: ctx}

	if len(size) > 0 {
		sc.ch = make(chan T, size[0])
	} else {
		sc.ch = make(chan T)
	}

	go utils.Try(func() {
		<-ctx.Done()
		sc.Close()
	}, log.FromContext(ctx))

	return sc
}

func (c *SafeChannel[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

func (c *SafeChannel[T]) Write(data T) (err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	// Close can still race the send below, recover the send-on-closed panic
	defer func() {
		if recover() != nil {
			err = ErrClosed
		}
	}()

	// A writer blocked on a full channel must not hang once the context ends
	select {
	case c.ch <- data:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

func (c *SafeChannel[T]) Read() <-chan T {
	return c.ch
}
