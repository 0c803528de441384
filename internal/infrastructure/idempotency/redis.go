package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client   *redis.Client
	ttl      time.Duration
	inflight time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl, inflight: inFlightTTL(0, ttl)}
}

// WithInFlightTTL sets how long a started request holds the key.
func (s *RedisStore) WithInFlightTTL(d time.Duration) *RedisStore {
	s.inflight = inFlightTTL(d, s.ttl)
	return s
}

func (s *RedisStore) Begin(ctx context.Context, key string) (State, []byte, error) {
	k := redisKey(key)
	ok, err := s.client.SetNX(ctx, k, pendingMarker, s.inflight).Result()
	if err != nil {
		return 0, nil, fmt.Errorf("redis setnx failed: %w", err)
	}
	if ok {
		return StateNew, nil, nil
	}
	data, err := s.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; try once more
		return s.Begin(ctx, key)
	}
	if err != nil {
		return 0, nil, fmt.Errorf("redis get failed: %w", err)
	}
	if string(data) == pendingMarker {
		return StateInFlight, nil, nil
	}
	return StateDone, data, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, payload []byte) error {
	if err := s.client.Set(ctx, redisKey(key), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func redisKey(key string) string {
	return fmt.Sprintf("idem:%s", key)
}
