package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore remembers the outcome of a request under a client-chosen
// key so a retried request can be answered without re-running it.
type IdempotencyStore struct {
	client    *Client
	keyPrefix string
	ttl       time.Duration
}

// NewIdempotencyStore creates a new IdempotencyStore
func NewIdempotencyStore(client *Client, keyPrefix string, ttl time.Duration) *IdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = "idem:"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// Recall returns the stored outcome for key, if any
func (s *IdempotencyStore) Recall(ctx context.Context, scope, key string) ([]byte, bool, error) {
	val, err := s.client.rdb.Get(ctx, s.keyPrefix+scope+":"+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		s.client.logger.WithContext(ctx).WithError(err).Warn("Failed to read idempotency key")
		return nil, false, err
	}
	return val, true, nil
}

// Remember stores an outcome under key. The first writer wins; a concurrent
// retry that finishes later does not overwrite it.
func (s *IdempotencyStore) Remember(ctx context.Context, scope, key string, outcome []byte) error {
	_, err := s.client.rdb.SetNX(ctx, s.keyPrefix+scope+":"+key, outcome, s.ttl).Result()
	if err != nil {
		s.client.logger.WithContext(ctx).WithError(err).Warn("Failed to store idempotency key")
	}
	return err
}
