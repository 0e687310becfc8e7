package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eam/pkg/platform/sentinel"
)

func TestLocalLock(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	lease, err := l.Acquire(ctx, "issues", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "issues", time.Minute)
	assert.ErrorIs(t, err, sentinel.ErrLocked)

	other, err := l.Acquire(ctx, "commits", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lease.Release(ctx))
	again, err := l.Acquire(ctx, "issues", time.Minute)
	require.NoError(t, err)

	// a stale release must not free the new holder
	require.NoError(t, lease.Release(ctx))
	_, err = l.Acquire(ctx, "issues", time.Minute)
	assert.ErrorIs(t, err, sentinel.ErrLocked)
	require.NoError(t, again.Release(ctx))
}

func TestLocalLockExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocal()
	l.clock = func() time.Time { return now }

	_, err := l.Acquire(ctx, "all", time.Hour)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = l.Acquire(ctx, "all", time.Hour)
	assert.NoError(t, err)
}

func TestLocalExpiryBelongsToHolder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocal()
	l.clock = func() time.Time { return now }

	t.Run("holder without ttl is not expired by a later caller's ttl", func(t *testing.T) {
		_, err := l.Acquire(ctx, "groups", 0)
		require.NoError(t, err)

		now = now.Add(48 * time.Hour)
		_, err = l.Acquire(ctx, "groups", time.Minute)
		assert.ErrorIs(t, err, sentinel.ErrLocked)
	})

	t.Run("expired holder yields to a caller without ttl", func(t *testing.T) {
		_, err := l.Acquire(ctx, "epics", time.Minute)
		require.NoError(t, err)

		now = now.Add(2 * time.Minute)
		_, err = l.Acquire(ctx, "epics", 0)
		assert.NoError(t, err)
	})
}

func TestLocalExtend(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocal()
	l.clock = func() time.Time { return now }

	lease, err := l.Acquire(ctx, "all", time.Minute)
	require.NoError(t, err)

	for range 5 {
		now = now.Add(40 * time.Second)
		require.NoError(t, lease.Extend(ctx, time.Minute))
	}
	_, err = l.Acquire(ctx, "all", time.Minute)
	assert.ErrorIs(t, err, sentinel.ErrLocked, "extended lease still held")

	now = now.Add(2 * time.Minute)
	thief, err := l.Acquire(ctx, "all", time.Minute)
	require.NoError(t, err)
	assert.ErrorIs(t, lease.Extend(ctx, time.Minute), ErrLost)

	require.NoError(t, lease.Release(ctx))
	_, err = l.Acquire(ctx, "all", time.Minute)
	assert.ErrorIs(t, err, sentinel.ErrLocked, "lost lease must not release the new holder")
	require.NoError(t, thief.Release(ctx))
}
