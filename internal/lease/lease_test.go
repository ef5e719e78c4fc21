package lease_test

import (
	"context"
	"testing"
	"time"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/lease"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_ExclusiveUntilReleased(t *testing.T) {
	l := lease.NewLocal()
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	release()

	release, ok, err = l.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	release()
}

func TestRedis_ExclusiveUntilReleased(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	first := lease.NewRedis(rdb, "alerts:cycle", time.Minute)
	second := lease.NewRedis(rdb, "alerts:cycle", time.Minute)

	release, ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("alerts:cycle"))

	_, ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	assert.False(t, mr.Exists("alerts:cycle"))

	release, ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	release()
}

func TestRedis_ExpiredLeaseIsNotReleasedByOldHolder(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	l := lease.NewRedis(rdb, "alerts:cycle", time.Second)
	staleRelease, ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	release, ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	staleRelease()
	assert.True(t, mr.Exists("alerts:cycle"))
	release()
}
