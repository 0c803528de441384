package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, time.Minute), mr
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	st, payload, err := s.Begin(ctx, "u1:k1")
	require.NoError(t, err)
	assert.Equal(t, StateNew, st)
	assert.Nil(t, payload)

	st, _, err = s.Begin(ctx, "u1:k1")
	require.NoError(t, err)
	assert.Equal(t, StateInFlight, st)

	require.NoError(t, s.Complete(ctx, "u1:k1", []byte(`{"order_id":"o1"}`)))
	st, payload, err = s.Begin(ctx, "u1:k1")
	require.NoError(t, err)
	assert.Equal(t, StateDone, st)
	assert.JSONEq(t, `{"order_id":"o1"}`, string(payload))

	st, _, err = s.Begin(ctx, "u1:k2")
	require.NoError(t, err)
	require.Equal(t, StateNew, st)
	require.NoError(t, s.Release(ctx, "u1:k2"))
	st, _, err = s.Begin(ctx, "u1:k2")
	require.NoError(t, err)
	assert.Equal(t, StateNew, st)
}

func TestRedisStore(t *testing.T) {
	s, _ := setupTestRedis(t)
	exerciseStore(t, s)
}

func TestRedisStore_KeysExpire(t *testing.T) {
	s, mr := setupTestRedis(t)
	ctx := context.Background()
	_, _, err := s.Begin(ctx, "u1:k1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("idem:u1:k1"))
	mr.FastForward(2 * time.Minute)
	st, _, err := s.Begin(ctx, "u1:k1")
	require.NoError(t, err)
	assert.Equal(t, StateNew, st)
}

func TestRedisStore_InFlightMarkerIsShortLived(t *testing.T) {
	s, mr := setupTestRedis(t)
	s.WithInFlightTTL(10 * time.Second)
	ctx := context.Background()

	_, _, err := s.Begin(ctx, "u1:k1")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, mr.TTL("idem:u1:k1"))
	require.NoError(t, s.Complete(ctx, "u1:k1", []byte(`{}`)))
	assert.Equal(t, time.Minute, mr.TTL("idem:u1:k1"))

	_, _, err = s.Begin(ctx, "u1:k2")
	require.NoError(t, err)
	mr.FastForward(11 * time.Second)
	st, _, err := s.Begin(ctx, "u1:k2")
	require.NoError(t, err)
	assert.Equal(t, StateNew, st)
}

func TestRedisStore_Unavailable(t *testing.T) {
	s, mr := setupTestRedis(t)
	mr.Close()
	_, _, err := s.Begin(context.Background(), "u1:k1")
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(time.Minute))
}

func TestMemoryStore_KeysExpire(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()
	_, _, _ = s.Begin(ctx, "k")
	now = now.Add(2 * time.Minute)
	st, _, err := s.Begin(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, StateNew, st)
}

func TestMemoryStore_InFlightMarkerIsShortLived(t *testing.T) {
	s := NewMemoryStore(time.Hour).WithInFlightTTL(10 * time.Second)
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_, _, _ = s.Begin(ctx, "k")
	now = now.Add(5 * time.Second)
	st, _, _ := s.Begin(ctx, "k")
	assert.Equal(t, StateInFlight, st)

	now = now.Add(6 * time.Second)
	st, _, err := s.Begin(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, StateNew, st)
}
