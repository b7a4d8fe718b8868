package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/config"
)

// RedisPresenceCache implements PresenceCache using Redis sets.
//
// Key patterns:
//
//	{prefix}:room:{room_id}:online   SET<user_id>
type RedisPresenceCache struct {
	client *redis.Client
	prefix string
}

// NewRedisPresenceCache creates a Redis-backed presence projection.
func NewRedisPresenceCache(cfg config.RedisConfig) (*RedisPresenceCache, error) {
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

	prefix := cfg.PresencePrefix
	if prefix == "" {
		prefix = "chat:presence"
	}

	return &RedisPresenceCache{client: client, prefix: prefix}, nil
}

func (c *RedisPresenceCache) onlineKey(roomID string) string {
	return fmt.Sprintf("%s:room:%s:online", c.prefix, roomID)
}

func (c *RedisPresenceCache) SetOnline(ctx context.Context, roomID, userID string) error {
	return c.client.SAdd(ctx, c.onlineKey(roomID), userID).Err()
}

func (c *RedisPresenceCache) SetOffline(ctx context.Context, roomID, userID string) error {
	return c.client.SRem(ctx, c.onlineKey(roomID), userID).Err()
}

func (c *RedisPresenceCache) OnlineCount(ctx context.Context, roomID string) (int, error) {
	n, err := c.client.SCard(ctx, c.onlineKey(roomID)).Result()
	return int(n), err
}

func (c *RedisPresenceCache) Close() error {
	return c.client.Close()
}
