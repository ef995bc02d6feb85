package redis

import (
	"context"

	"github.com/finch-technologies/go-queue/adapters"
	"github.com/finch-technologies/go-queue/config/database"
	"github.com/redis/go-redis/v9"
)

// LogStore keeps log events in a redis list, newest first. A shipper can
// drain the list in batches with FetchListBatch and DeleteListBatch.
type LogStore struct {
	rdb  *redis.Client
	list string
}

func New(db database.Name) *LogStore {
	return &LogStore{
		rdb:  adapters.GetRedisClient(db),
		list: string(db),
	}
}

// Write pushes one event onto the list. The name and signature come from
// io.Writer so the store can back a zerolog multi writer.
func (s *LogStore) Write(p []byte) (n int, err error) {
	if err := s.rdb.LPush(context.Background(), s.list, string(p)).Err(); err != nil {
		return 0, err
	}

	return len(p), nil
}

func (s *LogStore) FetchListBatch(listName string, count int64) ([]string, error) {
	return s.rdb.LRange(context.Background(), listName, 0, count-1).Result()
}

// DeleteListBatch drops the count oldest fetched events by trimming the
// front of the list.
func (s *LogStore) DeleteListBatch(listName string, count int64) error {
	return s.rdb.LTrim(context.Background(), listName, count, -1).Err()
}
