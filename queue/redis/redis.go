package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/finch-technologies/go-queue/adapters"
	"github.com/finch-technologies/go-queue/config/database"
	"github.com/finch-technologies/go-queue/queue/types"
	"github.com/google/uuid"

	"github.com/redis/go-redis/v9"
)

const redisBatchLimit = 10

// RedisDriver implements the queue driver interface on a redis list. It is
// meant for local development and tests, not production workloads: receive
// removes messages from the list immediately, so there is no visibility lock
// and no redelivery after a crash.
type RedisDriver struct {
	rdb *redis.Client
}

func New(db database.Name) *RedisDriver {
	return &RedisDriver{
		rdb: adapters.GetRedisClient(db),
	}
}

func (q *RedisDriver) BatchLimit() int {
	return redisBatchLimit
}

// Resolve returns the name itself, redis lists exist implicitly on first
// push so there is nothing to create or look up.
func (q *RedisDriver) Resolve(ctx context.Context, queue string, createIfMissing bool) (string, error) {
	return queue, nil
}

func (q *RedisDriver) Send(ctx context.Context, handle string, body string, options ...types.EnqueueOptions) (string, error) {
	if err := q.rdb.LPush(ctx, handle, body).Err(); err != nil {
		return "", fmt.Errorf("failed to push to the queue: %s", err)
	}

	return uuid.New().String(), nil
}

func (q *RedisDriver) SendBatch(ctx context.Context, handle string, bodies []string, options ...types.EnqueueOptions) ([]string, error) {
	if len(bodies) == 0 {
		return nil, nil
	}

	values := make([]interface{}, len(bodies))
	for i, body := range bodies {
		values[i] = body
	}

	if err := q.rdb.LPush(ctx, handle, values...).Err(); err != nil {
		return nil, fmt.Errorf("failed to push to the queue: %s", err)
	}

	ids := make([]string, len(bodies))
	for i := range ids {
		ids[i] = uuid.New().String()
	}

	return ids, nil
}

// Receive blocks for up to the default wait time for the first message, then
// drains without blocking up to batchSize. The lock duration is ignored,
// removal from the list is the acknowledgement.
func (q *RedisDriver) Receive(ctx context.Context, handle string, batchSize int, lock time.Duration) ([]types.ReceivedMessage, error) {
	result, err := q.rdb.BRPop(ctx, types.DefaultWaitTime, handle).Result()

	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get item from queue: %s", err)
	}

	// BRPop returns key then value
	messages := []types.ReceivedMessage{newReceivedMessage(result[1])}

	for len(messages) < batchSize {
		body, err := q.rdb.RPop(ctx, handle).Result()

		if err == redis.Nil {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to get item from queue: %s", err)
		}

		messages = append(messages, newReceivedMessage(body))
	}

	return messages, nil
}

func newReceivedMessage(body string) types.ReceivedMessage {
	return types.ReceivedMessage{
		MessageId:     uuid.New().String(),
		ReceiptHandle: uuid.New().String(),
		Body:          body,
		ReceivedAt:    time.Now(),
	}
}

// Delete is a no-op, Receive already removed the message from the list.
func (q *RedisDriver) Delete(ctx context.Context, handle string, receiptHandle string) error {
	return nil
}

func (q *RedisDriver) Count(ctx context.Context, handle string) (int, error) {
	count, err := q.rdb.LLen(ctx, handle).Result()

	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %s", err)
	}

	return int(count), nil
}
