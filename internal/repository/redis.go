package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/config"
	"github.com/redis/go-redis/v9"
)

const throttleKeyPrefix = "oden:booking_throttle:"

type RedisThrottle struct {
	client *redis.Client
}

// NewRedisClient builds a client from config. It does not dial.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisThrottle(client *redis.Client) *RedisThrottle {
	return &RedisThrottle{client: client}
}

// Allow counts one attempt for key in a fixed window and reports whether the
// count is still within limit.
func (r *RedisThrottle) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	k := throttleKeyPrefix + strings.ToLower(key)
	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment throttle counter: %w", err)
	}

	// first hit starts the window; a counter left without TTL is repaired
	if count == 1 || r.client.TTL(ctx, k).Val() < 0 {
		if err := r.client.Expire(ctx, k, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set throttle window: %w", err)
		}
	}

	return count <= int64(limit), nil
}

func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
