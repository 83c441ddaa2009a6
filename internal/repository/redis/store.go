package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/utafrali/storefront-cart/pkg/errors"
)

// Store implements repository.Store using Redis strings. Keys have the form
// <prefix><sessionID>:<key>.
type Store struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewStore creates a new Redis-backed store. A zero ttl keeps values until
// they are overwritten.
func NewStore(client redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	return &Store{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Key returns the Redis key for a session's logical key.
func (s *Store) Key(sessionID, key string) string {
	return s.prefix + sessionID + ":" + key
}

// Get retrieves the raw value from Redis.
func (s *Store) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.Key(sessionID, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound(key, sessionID)
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Set writes the raw value to Redis, refreshing the TTL when one is set.
func (s *Store) Set(ctx context.Context, sessionID, key string, value []byte) error {
	if err := s.client.Set(ctx, s.Key(sessionID, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
