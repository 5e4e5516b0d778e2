package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/reviews/internal/domain"
)

const redisKeyPrefix = "review:idempotency:"

// RedisStore keeps idempotency records in Redis with a TTL, so every replica
// of the service shares them.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore whose entries live for ttl.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (*domain.Review, bool, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get idempotency key: %w", err)
	}

	var rv domain.Review
	if err := json.Unmarshal(raw, &rv); err != nil {
		return nil, false, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &rv, true, nil
}

// Put implements Store. SETNX keeps the first record for a key.
func (s *RedisStore) Put(ctx context.Context, key string, review *domain.Review) error {
	raw, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}
	if err := s.client.SetNX(ctx, redisKeyPrefix+key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set idempotency key: %w", err)
	}
	return nil
}

// Ping checks Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
