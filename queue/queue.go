package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/finch-technologies/go-queue/config/database"
	"github.com/finch-technologies/go-queue/metrics"
	"github.com/finch-technologies/go-queue/queue/redis"
	"github.com/finch-technologies/go-queue/queue/sqs"
	"github.com/finch-technologies/go-queue/queue/types"
	"github.com/finch-technologies/go-queue/utils"
)

type DriverType string

const (
	DriverSQS   DriverType = "sqs"
	DriverRedis DriverType = "redis"
)

var driverTypes = []DriverType{DriverSQS, DriverRedis}

type Config[T any] struct {
	// Driver selects the provider when Client is nil. Defaults to SQS.
	Driver DriverType
	// Client substitutes a custom driver and bypasses driver construction.
	Client Driver
	// Codec encodes and decodes payloads. Defaults to JSONCodec.
	Codec Codec[T]
	// Region is the AWS region for the SQS driver. Defaults to AWS_REGION,
	// then af-south-1.
	Region string
	// BaseUrl, when set, derives queue handles as BaseUrl/name without a
	// provider lookup.
	BaseUrl string
	// Endpoint points the SQS client at a custom endpoint such as localstack.
	Endpoint string
	// CreateIfMissing creates the queue if the name does not resolve.
	CreateIfMissing bool
	// Collector receives queue metrics. Nil disables them.
	Collector metrics.Collector
}

// Queue is a typed handle to one named queue. The provider side address is
// resolved once at construction and reused for every call, it is never
// re-resolved for the lifetime of the instance.
type Queue[T any] struct {
	name      string
	handle    string
	driver    Driver
	codec     Codec[T]
	collector metrics.Collector
}

func getConfig[T any](config ...Config[T]) Config[T] {
	var cfg Config[T]

	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Driver == "" {
		cfg.Driver = DriverSQS
	}

	if cfg.Codec == nil {
		cfg.Codec = JSONCodec[T]{}
	}

	return cfg
}

// New resolves the named queue and returns a typed handle to it. It fails
// with ErrQueueUnavailable when the queue does not exist and CreateIfMissing
// is not set, and with a ProviderError on any transport failure. A failed
// resolution is never cached, recreate the instance to retry.
func New[T any](ctx context.Context, name string, config ...Config[T]) (*Queue[T], error) {
	if name == "" {
		return nil, fmt.Errorf("queue: queue name is required")
	}

	cfg := getConfig(config...)

	driver := cfg.Client

	if driver == nil {
		if !utils.Contains(driverTypes, cfg.Driver) {
			return nil, fmt.Errorf("no valid queue driver specified")
		}

		switch cfg.Driver {
		case DriverRedis:
			driver = redis.New(database.Name("queue"))
		case DriverSQS:
			var err error

			driver, err = sqs.New(sqs.SQSConfig{
				Region:     cfg.Region,
				SQSBaseUrl: cfg.BaseUrl,
				Endpoint:   cfg.Endpoint,
			})

			if err != nil {
				return nil, fmt.Errorf("failed to create sqs queue: %s", err)
			}
		}
	}

	handle, err := driver.Resolve(ctx, name, cfg.CreateIfMissing)

	if err != nil {
		if errors.Is(err, types.ErrQueueUnavailable) {
			return nil, err
		}

		return nil, &ProviderError{Op: "resolve", Queue: name, Err: err}
	}

	return &Queue[T]{
		name:      name,
		handle:    handle,
		driver:    driver,
		codec:     cfg.Codec,
		collector: cfg.Collector,
	}, nil
}

// Name returns the logical queue name the handle was resolved from.
func (q *Queue[T]) Name() string {
	return q.name
}

// Enqueue encodes the payload and sends it, returning the provider assigned
// message id. No retry is performed, the caller decides what a send failure
// means.
func (q *Queue[T]) Enqueue(ctx context.Context, payload T, options ...types.EnqueueOptions) (string, error) {
	body, err := q.codec.Encode(ctx, payload)

	if err != nil {
		return "", &EnqueueError{Queue: q.name, Err: err}
	}

	id, err := q.driver.Send(ctx, q.handle, body, options...)

	if err != nil {
		return "", &EnqueueError{Queue: q.name, Err: err}
	}

	q.count(ctx, metricEnqueued, 1)

	return id, nil
}

// EnqueueBatch encodes and sends the payloads in provider sized batches,
// returning the message ids in payload order. On failure the ids of batches
// already sent are returned alongside the error.
func (q *Queue[T]) EnqueueBatch(ctx context.Context, payloads []T, options ...types.EnqueueOptions) ([]string, error) {
	if len(payloads) == 0 {
		return nil, nil
	}

	bodies := make([]string, len(payloads))

	for i, payload := range payloads {
		body, err := q.codec.Encode(ctx, payload)

		if err != nil {
			return nil, &EnqueueError{Queue: q.name, Err: err}
		}

		bodies[i] = body
	}

	limit := q.driver.BatchLimit()
	ids := make([]string, 0, len(bodies))

	for start := 0; start < len(bodies); start += limit {
		end := min(start+limit, len(bodies))

		batchIds, err := q.driver.SendBatch(ctx, q.handle, bodies[start:end], options...)

		if err != nil {
			return ids, &EnqueueError{Queue: q.name, Err: err}
		}

		ids = append(ids, batchIds...)
	}

	q.count(ctx, metricEnqueued, float64(len(ids)))

	return ids, nil
}

func getDequeueOptions(options ...types.DequeueOptions) types.DequeueOptions {
	if len(options) == 0 {
		return types.DequeueOptions{
			BatchSize: 1,
		}
	}

	return options[0]
}

// Dequeue receives up to BatchSize messages. Requests larger than the
// provider batch limit are split into sub requests issued concurrently and
// the results merged, dropping duplicate deliveries of the same message id.
// If any sub request fails the whole call fails with the first error, no
// partial results are returned.
//
// An explicit BatchSize of zero issues no provider call at all. An empty
// result means the long poll window expired, not an error.
func (q *Queue[T]) Dequeue(ctx context.Context, options ...types.DequeueOptions) ([]*Message[T], error) {
	opts := getDequeueOptions(options...)

	sizes := chunkSizes(opts.BatchSize, q.driver.BatchLimit())

	if len(sizes) == 0 {
		return nil, nil
	}

	if len(sizes) == 1 {
		return q.receive(ctx, sizes[0], opts.LockDuration)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	results := make([][]*Message[T], len(sizes))

	for i, size := range sizes {
		wg.Add(1)

		go func(i int, size int) {
			defer wg.Done()

			messages, err := utils.TryReturn(func() ([]*Message[T], error) {
				return q.receive(ctx, size, opts.LockDuration)
			})

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}

			results[i] = messages
		}(i, size)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	return mergeMessages(results), nil
}

// DequeueOne is a point receive for a single message. It returns nil without
// an error when the long poll window expires with nothing available.
func (q *Queue[T]) DequeueOne(ctx context.Context, options ...types.DequeueOptions) (*Message[T], error) {
	var opts types.DequeueOptions

	if len(options) > 0 {
		opts = options[0]
	}

	messages, err := q.receive(ctx, 1, opts.LockDuration)

	if err != nil {
		return nil, err
	}

	if len(messages) == 0 {
		return nil, nil
	}

	return messages[0], nil
}

// Count returns the approximate number of messages waiting in the queue.
func (q *Queue[T]) Count(ctx context.Context) (int, error) {
	count, err := q.driver.Count(ctx, q.handle)

	if err != nil {
		return 0, &ProviderError{Op: "count", Queue: q.name, Err: err}
	}

	return count, nil
}

// receive issues one bounded provider call and decodes the results. A batch
// size of zero returns empty without touching the network.
func (q *Queue[T]) receive(ctx context.Context, batchSize int, lock time.Duration) ([]*Message[T], error) {
	if batchSize <= 0 {
		return nil, nil
	}

	start := time.Now()

	received, err := q.driver.Receive(ctx, q.handle, batchSize, lock)

	q.observe(ctx, metricReceiveDuration, map[string]string{
		"queue":  q.name,
		"status": utils.If(err != nil, "error", "ok"),
	}, time.Since(start).Seconds())

	if err != nil {
		return nil, &DequeueError{Queue: q.name, Err: err}
	}

	messages := make([]*Message[T], 0, len(received))

	for _, raw := range received {
		payload, err := q.codec.Decode(ctx, raw.Body)

		if err != nil {
			return nil, &DequeueError{Queue: q.name, Err: err}
		}

		messages = append(messages, q.newMessage(raw, payload))
	}

	q.count(ctx, metricDequeued, float64(len(messages)))

	return messages, nil
}

func (q *Queue[T]) newMessage(raw types.ReceivedMessage, payload T) *Message[T] {
	// The deleter captures this delivery's receipt handle, not the struct
	// field, so the envelope always acknowledges the delivery it was built
	// from
	receiptHandle := raw.ReceiptHandle

	return &Message[T]{
		MessageId:               raw.MessageId,
		ReceiptHandle:           raw.ReceiptHandle,
		Payload:                 payload,
		Attributes:              raw.Attributes,
		ReceivedAt:              raw.ReceivedAt,
		ApproximateReceiveCount: raw.ApproximateReceiveCount,
		deleter: func(ctx context.Context) error {
			if err := q.driver.Delete(ctx, q.handle, receiptHandle); err != nil {
				q.count(ctx, metricDeleteFailures, 1)
				return err
			}

			q.count(ctx, metricConsumed, 1)

			return nil
		},
	}
}

// mergeMessages flattens per request results in request order, dropping
// duplicate deliveries of the same message id. The last delivery wins so the
// receipt handle kept is the freshest one.
func mergeMessages[T any](results [][]*Message[T]) []*Message[T] {
	merged := make([]*Message[T], 0)
	positions := make(map[string]int)

	for _, messages := range results {
		for _, message := range messages {
			if pos, ok := positions[message.MessageId]; ok {
				merged[pos] = message
				continue
			}

			positions[message.MessageId] = len(merged)
			merged = append(merged, message)
		}
	}

	return merged
}
