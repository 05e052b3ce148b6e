package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/looquest/looquest/internal/pkg/config"
)

// Store is a small JSON-over-Redis cache. Callers treat every failure as a
// miss so a Redis outage degrades to uncached reads, never to errors.
type Store struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewStore(client *redis.Client, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, logger: logger}
}

// Get unmarshals the cached value at key into dest. Returns false on miss
// or on any Redis/decoding failure.
func (s *Store) Get(ctx context.Context, key string, dest any) bool {
	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("Cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		s.logger.Warn("Cache payload corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set stores value at key with the given TTL. Failures are logged only.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("Cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		s.logger.Warn("Cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes keys. Failures are logged only.
func (s *Store) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("Cache delete failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// DeletePattern removes all keys matching a glob pattern via SCAN.
func (s *Store) DeletePattern(ctx context.Context, pattern string) {
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn("Cache scan failed", zap.String("pattern", pattern), zap.Error(err))
		return
	}
	s.Delete(ctx, keys...)
}

// Ping reports whether Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
