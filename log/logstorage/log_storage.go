package logstorage

import (
	"fmt"
	"os"

	"github.com/finch-technologies/go-queue/config/database"
	"github.com/finch-technologies/go-queue/log/logstorage/dynamodb"
	"github.com/finch-technologies/go-queue/log/logstorage/redis"
	"github.com/joho/godotenv"
)

// Store is a secondary sink for log events. Write appends a single event,
// the batch methods drain stored events for shipping elsewhere. Implementing
// io.Writer lets a store sit behind a zerolog multi writer.
type Store interface {
	Write(p []byte) (n int, err error)
	FetchListBatch(listName string, count int64) ([]string, error)
	DeleteListBatch(listName string, count int64) error
}

var store Store

// Init wires up the store named by LOG_STORAGE_DRIVER. Log storage is
// optional, an unset or unknown driver returns an error and the console
// stays the only sink.
func Init() (Store, error) {
	// Loaded here because logging initializes before main runs
	godotenv.Load()

	if store != nil {
		return store, nil
	}

	driver := os.Getenv("LOG_STORAGE_DRIVER")

	switch driver {
	case "redis":
		store = redis.New(database.Name("logs"))
	case "dynamodb":
		store = dynamodb.New(database.Name("logs"))
	default:
		// Returning the error rather than logging it, this runs inside the
		// logging driver itself
		return nil, fmt.Errorf("no log storage driver named %q", driver)
	}

	return store, nil
}

func GetDatabase() (Store, error) {
	if store == nil {
		return Init()
	}

	return store, nil
}
