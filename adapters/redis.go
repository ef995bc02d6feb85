package adapters

import (
	"crypto/tls"
	"fmt"
	"sync"

	"github.com/finch-technologies/go-queue/config/database"
	"github.com/finch-technologies/go-queue/env"
	"github.com/redis/go-redis/v9"
)

var (
	redisMu      sync.Mutex
	redisClients = make(map[database.Name]*redis.Client)
)

// GetRedisClient returns the shared client for a logical database, creating
// it on first use. Connection details come from REDIS_HOST, REDIS_PORT,
// REDIS_PASSWORD and REDIS_SCHEME.
func GetRedisClient(db database.Name) *redis.Client {
	redisMu.Lock()
	defer redisMu.Unlock()

	if client, ok := redisClients[db]; ok {
		return client
	}

	host := env.GetOrDefault("REDIS_HOST", "localhost")
	port := env.GetOrDefault("REDIS_PORT", "6379")

	options := &redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetOrDefault("REDIS_PASSWORD", ""),
		DB:       GetRedisDB(db),
	}

	if env.GetOrDefault("REDIS_SCHEME", "") == "tls" {
		options.TLSConfig = &tls.Config{}
	}

	client := redis.NewClient(options)
	redisClients[db] = client

	return client
}

// Each logical database gets its own redis db index so keys never collide
// across concerns sharing one server.
var redisDbMap = map[database.Name]int{
	database.Name("main"):  0,
	database.Name("logs"):  2,
	database.Name("queue"): 4,
}

func GetRedisDB(dbName database.Name) int {
	return redisDbMap[dbName]
}
