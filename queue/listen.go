package queue

import (
	"context"
	"sync"
	"time"

	channels "github.com/finch-technologies/go-queue/channel"
	"github.com/finch-technologies/go-queue/log"
	"github.com/finch-technologies/go-queue/queue/types"
	"github.com/finch-technologies/go-queue/utils"
)

// Handler processes one message. Returning nil consumes the message,
// returning an error leaves it to reappear once its visibility lock expires.
type Handler[T any] func(ctx context.Context, message *Message[T]) error

const defaultListenErrorDelay = 5 * time.Second

func (q *Queue[T]) getListenOptions(options ...types.ListenOptions) types.ListenOptions {
	var opts types.ListenOptions

	if len(options) > 0 {
		opts = options[0]
	}

	limit := q.driver.BatchLimit()

	opts.BatchSize = utils.IntOrDefault(opts.BatchSize, limit)
	opts.Workers = utils.IntOrDefault(opts.Workers, limit)
	opts.ErrorDelay = utils.DurationOrDefault(opts.ErrorDelay, defaultListenErrorDelay)

	return opts
}

// Listen pulls batches from the queue and dispatches them to a fixed pool of
// workers until the context ends. Receive errors are logged and retried
// after ErrorDelay rather than stopping the loop. Listen returns ctx.Err()
// once every in flight handler has finished.
func (q *Queue[T]) Listen(ctx context.Context, handler Handler[T], options ...types.ListenOptions) error {
	opts := q.getListenOptions(options...)

	jobs := channels.New[*Message[T]](ctx, opts.BatchSize)

	var wg sync.WaitGroup

	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for message := range jobs.Read() {
				q.dispatch(ctx, handler, message)
			}
		}()
	}

	for ctx.Err() == nil {
		messages, err := q.Dequeue(ctx, types.DequeueOptions{
			BatchSize:    opts.BatchSize,
			LockDuration: opts.LockDuration,
		})

		if err != nil {
			if ctx.Err() != nil {
				break
			}

			log.Errorf("failed to dequeue from %s: %s", q.name, err)
			utils.Sleep(ctx, opts.ErrorDelay)

			continue
		}

		for _, message := range messages {
			if err := jobs.Write(message); err != nil {
				break
			}
		}
	}

	jobs.Close()
	wg.Wait()

	return ctx.Err()
}

// dispatch runs the handler and consumes the message on success. Panics are
// recovered and treated as handler errors so one bad message cannot take
// down a worker.
func (q *Queue[T]) dispatch(ctx context.Context, handler Handler[T], message *Message[T]) {
	var err error

	utils.TryCatch(func() {
		err = handler(ctx, message)
	}, func(e error, stackTrace string) {
		log.ErrorStack(stackTrace, "handler panic on message %s: %s", message.MessageId, e)
		err = e
	})

	if err != nil {
		q.count(ctx, metricHandlerFailures, 1)
		log.Errorf("failed to handle message %s: %s", message.MessageId, err)

		return
	}

	message.Consume(ctx)
}
