package queue

import (
	"context"
	"sync"
	"time"

	"github.com/finch-technologies/go-queue/log"
)

// Message is a received record bound to its delivery. Callers process the
// payload and then call Consume to delete the record from the queue. An
// unconsumed message reappears once its visibility lock expires.
//
// The deletion closes over the receipt handle of this specific delivery. Two
// messages can share a MessageId after a redelivery, each deletes only its
// own delivery.
type Message[T any] struct {
	MessageId               string
	ReceiptHandle           string
	Payload                 T
	Attributes              map[string]string
	ReceivedAt              time.Time
	ApproximateReceiveCount int

	deleteOnce sync.Once
	deleter    func(ctx context.Context) error
}

// Consume deletes the message from the queue. Only the first call does any
// work, repeated calls are no-ops. Deletion failures are logged and swallowed
// rather than surfaced: the queue redelivers the message after the lock
// expires, which is the at-least-once contract callers already handle.
func (m *Message[T]) Consume(ctx context.Context) {
	m.deleteOnce.Do(func() {
		if m.deleter == nil {
			return
		}

		if err := m.deleter(ctx); err != nil {
			log.Errorf("failed to delete message %s: %s", m.MessageId, err)
		}
	})
}
