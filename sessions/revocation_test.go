package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevoker(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRevoker()

	revoked, err := r.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "abc", time.Now().Add(time.Hour)))

	revoked, err = r.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestMemoryRevokerForgetsExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	r := NewMemoryRevoker()
	r.now = func() time.Time { return now }

	require.NoError(t, r.Revoke(ctx, "old", now.Add(time.Minute)))
	require.NoError(t, r.Revoke(ctx, "past", now.Add(-time.Minute)))

	revoked, _ := r.IsRevoked(ctx, "past")
	assert.False(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, _ = r.IsRevoked(ctx, "old")
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "new", now.Add(time.Minute)))
	assert.Len(t, r.revoked, 1)
}

func newRedisRevoker(t *testing.T) (*RedisRevoker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	return NewRedisRevoker(client), mr
}

func TestRedisRevoker(t *testing.T) {
	ctx := context.Background()
	r, mr := newRedisRevoker(t)

	revoked, err := r.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "abc", time.Now().Add(time.Hour)))

	revoked, err = r.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)

	ttl := mr.TTL("grammable:revoked:abc")
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	revoked, err = r.IsRevoked(ctx, "other")
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = r.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisRevokerSkipsExpiredTokens(t *testing.T) {
	ctx := context.Background()
	r, mr := newRedisRevoker(t)

	require.NoError(t, r.Revoke(ctx, "old", time.Now().Add(-time.Minute)))

	assert.False(t, mr.Exists("grammable:revoked:old"))
	revoked, err := r.IsRevoked(ctx, "old")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisRevokerReportsStoreErrors(t *testing.T) {
	ctx := context.Background()
	r, mr := newRedisRevoker(t)
	mr.Close()

	_, err := r.IsRevoked(ctx, "abc")
	assert.ErrorContains(t, err, "check session")

	err = r.Revoke(ctx, "abc", time.Now().Add(time.Hour))
	assert.ErrorContains(t, err, "revoke session")
}
