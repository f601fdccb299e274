//go:build integration

package containers

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"istr/internal/platform/config"
	platformredis "istr/internal/platform/redis"
)

const redisImage = "redis:7-alpine"

// RedisContainer is a disposable Redis reached through the same client
// constructor the server uses.
type RedisContainer struct {
	Container *tcredis.RedisContainer
	URL       string
	Client    *redis.Client
}

func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := tcredis.Run(ctx, redisImage)
	if err != nil {
		t.Fatalf("start %s: %v", redisImage, err)
	}
	url, err := ctr.ConnectionString(ctx)
	if err == nil {
		var client *platformredis.Client
		client, err = platformredis.New(ctx, config.RedisConfig{URL: url, PoolSize: 4})
		if err == nil {
			return &RedisContainer{Container: ctr, URL: url, Client: client.Client}
		}
	}
	_ = ctr.Terminate(context.Background())
	t.Fatalf("connect to %s: %v", redisImage, err)
	return nil
}

// FlushAll empties the database between tests.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}
