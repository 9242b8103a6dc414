package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultSessionTTL = 24 * time.Hour

// RedisStore keeps backend tokens per storefront session.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisStore) Save(ctx context.Context, sessionID, token string) error {
	if sessionID == "" || token == "" {
		return ErrNoCredential
	}
	if err := r.client.Set(ctx, sessionKey(sessionID), token, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrNoCredential
	}
	token, err := r.client.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	if token == "" {
		return "", ErrNoCredential
	}
	return token, nil
}

// Delete logs the session out. Deleting an unknown session is not an error.
func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Provider binds the store to one session.
func (r *RedisStore) Provider(sessionID string) Provider {
	return ProviderFunc(func(ctx context.Context) (string, error) {
		return r.Get(ctx, sessionID)
	})
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s:token", sessionID)
}
