package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/transfa/wallet-gateway/internal/domain"
)

// RedisNotificationCache stores the list under "<prefix>:notifications".
type RedisNotificationCache struct {
	client redis.Cmdable
	key    string
}

func NewRedisNotificationCache(client redis.Cmdable, prefix string) *RedisNotificationCache {
	if prefix == "" {
		prefix = "wallet"
	}
	return &RedisNotificationCache{client: client, key: prefix + ":notifications"}
}

func (c *RedisNotificationCache) Load(ctx context.Context) ([]domain.Notification, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load notifications from redis: %w", err)
	}
	return decodeNotifications(data)
}

func (c *RedisNotificationCache) Save(ctx context.Context, notifications []domain.Notification) error {
	data, err := json.Marshal(notifications)
	if err != nil {
		return fmt.Errorf("failed to encode notifications: %w", err)
	}
	if err := c.client.Set(ctx, c.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save notifications to redis: %w", err)
	}
	return nil
}
