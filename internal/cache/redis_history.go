package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/config"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/domain"
)

// RedisHistoryCache implements HistoryCache using Redis strings.
//
// Key patterns:
//
//	{prefix}:ver:{room_id}                             INT (version counter)
//	{prefix}:{room_id}:{ver}:{limit}:{offset}:{incl}   JSON page
type RedisHistoryCache struct {
	client *redis.Client
	prefix string
}

// NewRedisHistoryCache creates a Redis-backed history page cache.
func NewRedisHistoryCache(cfg config.RedisConfig) (*RedisHistoryCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.HistoryPrefix
	if prefix == "" {
		prefix = "chat:history"
	}

	return &RedisHistoryCache{client: client, prefix: prefix}, nil
}

func (c *RedisHistoryCache) versionKey(roomID string) string {
	return fmt.Sprintf("%s:ver:%s", c.prefix, roomID)
}

// Key builds a page key embedding the room's current version. A failed
// version read degrades to version 0, which at worst causes one extra DB
// fetch.
func (c *RedisHistoryCache) Key(ctx context.Context, roomID string, limit, offset int, includeDeleted bool) string {
	ver, err := c.client.Get(ctx, c.versionKey(roomID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		ver = 0
	}
	return fmt.Sprintf("%s:%s:%d:%d:%d:%t", c.prefix, roomID, ver, limit, offset, includeDeleted)
}

func (c *RedisHistoryCache) Get(ctx context.Context, key string) ([]domain.Message, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var messages []domain.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached page: %w", err)
	}
	return messages, nil
}

func (c *RedisHistoryCache) Set(ctx context.Context, key string, messages []domain.Message, ttl time.Duration) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal page: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

// Invalidate bumps the room's version counter so existing page keys are
// never read again.
func (c *RedisHistoryCache) Invalidate(ctx context.Context, roomID string) error {
	return c.client.Incr(ctx, c.versionKey(roomID)).Err()
}

func (c *RedisHistoryCache) Close() error {
	return c.client.Close()
}
