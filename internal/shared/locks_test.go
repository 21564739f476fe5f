package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client), mr
}

func TestRedisLockerSingleOwner(t *testing.T) {
	locker, mr := newLocker(t)
	ctx := context.Background()
	key := JobLockKey("sessions:purge_expired")
	assert.Equal(t, "peopledesk:job:sessions:purge_expired:lock", key)

	release, err := locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists(key))

	_, err = locker.Acquire(ctx, key, time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists(key))

	release, err = locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestRedisLockerStaleReleaseKeepsNewOwner(t *testing.T) {
	locker, mr := newLocker(t)
	ctx := context.Background()
	key := JobLockKey("sessions:purge_expired")

	stale, err := locker.Acquire(ctx, key, time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	_, err = locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)

	require.NoError(t, stale(ctx))
	assert.True(t, mr.Exists(key))
}

func TestRedisLockerNotInitialised(t *testing.T) {
	var locker *RedisLocker
	_, err := locker.Acquire(context.Background(), "k", time.Second)
	assert.Error(t, err)
}
