package database

import (
	"context"
	"fmt"
	"time"

	"github.com/otravers/otravers/backend/go-services/internal/config"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis builds a client from cfg and pings it. Caller owns the client
// and must Close it.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig, timeout time.Duration) (*redis.Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("redis connect: REDIS_HOST is not set")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: timeout,
	})
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
