package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTier is an optional shared disk-tier replacement, letting the
// cache be shared across processes instead of sharded to local disk.
// Selected by config.CacheConfig.Backend == "redis".
type RedisTier struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTier connects to addr. The connection is lazy; go-redis
// dials on first command.
func NewRedisTier(addr string, ttl time.Duration) *RedisTier {
	return &RedisTier{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

func (r *RedisTier) Get(key string) (string, bool) {
	val, err := r.client.Get(context.Background(), "studio:cache:"+key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (r *RedisTier) Set(key, response string) error {
	return r.client.Set(context.Background(), "studio:cache:"+key, response, r.ttl).Err()
}

func (r *RedisTier) Close() error { return r.client.Close() }
