package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenStore keeps the token in Redis so several gateway replicas can
// share one session.
type RedisTokenStore struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// NewRedisTokenStore stores the token under "<prefix>:session:access_token".
// A zero ttl keeps the key until it is cleared.
func NewRedisTokenStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisTokenStore {
	if prefix == "" {
		prefix = "wallet"
	}
	return &RedisTokenStore{
		client: client,
		key:    prefix + ":session:access_token",
		ttl:    ttl,
	}
}

func (s *RedisTokenStore) Load(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load token from redis: %w", err)
	}
	return token, nil
}

func (s *RedisTokenStore) Save(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, s.key, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save token to redis: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear token in redis: %w", err)
	}
	return nil
}
