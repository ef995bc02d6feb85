package types

import "time"

// DefaultWaitTime is how long a receive call long polls for messages before
// returning empty. It is fixed across drivers and not caller configurable.
const DefaultWaitTime = 10 * time.Second

type EnqueueOptions struct {
	GroupId         string
	DeduplicationId string
	Attributes      map[string]string
	Delay           time.Duration
}

type DequeueOptions struct {
	BatchSize int
	// LockDuration extends the visibility lock on received messages. Zero
	// keeps the queue's default. Providers truncate it to whole seconds.
	LockDuration time.Duration
}

type ListenOptions struct {
	BatchSize    int
	LockDuration time.Duration
	Workers      int
	// ErrorDelay is the pause after a failed receive before polling again.
	ErrorDelay time.Duration
}

// ReceivedMessage is a raw record as returned by a queue driver, before the
// body has been decoded.
type ReceivedMessage struct {
	MessageId               string
	ReceiptHandle           string
	Body                    string
	Attributes              map[string]string
	ReceivedAt              time.Time
	ApproximateReceiveCount int
}
