package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked:"

// RedisRevocationStore backs the Token Authority's revocation set with the
// shared Redis instance.
type RedisRevocationStore struct {
	rdb *redis.Client
}

// NewRedisRevocationStore creates a Redis-backed RevocationStore.
func NewRedisRevocationStore(rdb *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{rdb: rdb}
}

// MarkRevoked implements RevocationStore.
func (s *RedisRevocationStore) MarkRevoked(tokenID string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	key := revokedKeyPrefix + tokenID
	if err := s.rdb.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("marking token revoked: %w", err)
	}
	return nil
}

// IsRevoked implements RevocationStore.
func (s *RedisRevocationStore) IsRevoked(tokenID string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	key := revokedKeyPrefix + tokenID
	_, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return false, fmt.Errorf("checking token revocation: %w", err)
}
