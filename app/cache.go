package app

import (
	"context"
	"fmt"
	"time"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/go-redis/redis/v8"
)

// NewCacheStore returns a redis backed response cache when addr is set and
// an in-memory one otherwise
func NewCacheStore(addr string) (persist.CacheStore, error) {
	if addr == "" {
		return persist.NewMemoryStore(time.Minute), nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s, %w", addr, err)
	}

	return persist.NewRedisStore(client), nil
}
