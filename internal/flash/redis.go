package flash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/atinyakov/go-page-analyzer/internal/models"
)

const redisKeyPrefix = "flash:"

// RedisClient is the subset of *redis.Client used by RedisBackend.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
}

// RedisBackend shares messages between instances through Redis.
type RedisBackend struct {
	client RedisClient
}

func NewRedisBackend(client RedisClient) *RedisBackend {
	return &RedisBackend{client: client}
}

// DialRedis connects to the server described by a redis:// URL.
func DialRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, f models.Flash, ttl time.Duration) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}

	return b.client.Set(ctx, redisKeyPrefix+key, data, ttl).Err()
}

func (b *RedisBackend) Take(ctx context.Context, key string) (*models.Flash, error) {
	data, err := b.client.GetDel(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var f models.Flash
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode flash: %w", err)
	}

	return &f, nil
}
