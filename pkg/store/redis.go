package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// KeyPrefix namespaces snapshot keys in Redis.
const KeyPrefix = "telemetry:snapshot:"

// RedisStore writes snapshots as Redis string values with an optional TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisStore creates a Redis-backed snapshot store. A zero ttl keeps
// snapshots until explicitly deleted.
func NewRedisStore(client *redis.Client, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: log.With().Str("component", "redis-store").Logger(),
	}, nil
}

// Save stores the blob under KeyPrefix + name.
func (s *RedisStore) Save(ctx context.Context, name string, data []byte) error {
	key := KeyPrefix + name
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store snapshot in redis: %w", err)
	}

	snapshotsSavedTotal.WithLabelValues("redis").Inc()
	snapshotBytes.WithLabelValues("redis").Observe(float64(len(data)))

	s.logger.Info().
		Str("key", key).
		Int("bytes", len(data)).
		Dur("ttl", s.ttl).
		Msg("Snapshot saved")

	return nil
}
