package queue

import (
	"fmt"

	"github.com/finch-technologies/go-queue/queue/types"
)

// ErrQueueUnavailable is returned by New when the named queue does not exist
// and CreateIfMissing is not set.
var ErrQueueUnavailable = types.ErrQueueUnavailable

// ProviderError wraps a transport or auth failure from the underlying queue
// provider.
type ProviderError struct {
	Op    string
	Queue string
	Err   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("queue: %s failed for %q: %v", e.Op, e.Queue, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// EnqueueError wraps a failure to encode or send a message.
type EnqueueError struct {
	Queue string
	Err   error
}

func (e *EnqueueError) Error() string {
	return fmt.Sprintf("queue: enqueue to %q failed: %v", e.Queue, e.Err)
}

func (e *EnqueueError) Unwrap() error {
	return e.Err
}

// DequeueError wraps a failure to receive or decode messages. A dequeue
// either fully succeeds or fails as a whole, there are no partial results.
type DequeueError struct {
	Queue string
	Err   error
}

func (e *DequeueError) Error() string {
	return fmt.Sprintf("queue: dequeue from %q failed: %v", e.Queue, e.Err)
}

func (e *DequeueError) Unwrap() error {
	return e.Err
}
