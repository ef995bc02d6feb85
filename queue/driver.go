package queue

import (
	"context"
	"time"

	"github.com/finch-technologies/go-queue/queue/types"
)

// Driver is the provider interface implemented by the sqs and redis
// subpackages. Drivers operate on resolved queue handles, not logical names.
type Driver interface {
	// Resolve maps a queue name to the handle every other call operates on.
	// It returns types.ErrQueueUnavailable when the queue does not exist and
	// createIfMissing is false.
	Resolve(ctx context.Context, queue string, createIfMissing bool) (string, error)

	// Send submits one message body and returns its provider assigned id.
	Send(ctx context.Context, handle string, body string, options ...types.EnqueueOptions) (string, error)

	// SendBatch submits up to BatchLimit bodies in one call and returns their
	// message ids in input order.
	SendBatch(ctx context.Context, handle string, bodies []string, options ...types.EnqueueOptions) ([]string, error)

	// Receive long polls for up to batchSize messages, batchSize must not
	// exceed BatchLimit. A zero lock keeps the queue's default visibility.
	Receive(ctx context.Context, handle string, batchSize int, lock time.Duration) ([]types.ReceivedMessage, error)

	// Delete removes one delivery by its receipt handle.
	Delete(ctx context.Context, handle string, receiptHandle string) error

	// Count returns the approximate number of messages waiting in the queue.
	Count(ctx context.Context, handle string) (int, error)

	// BatchLimit is the provider cap on messages per send or receive call.
	BatchLimit() int
}
