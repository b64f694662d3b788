package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/eventdesk/storage"
	"github.com/jmcleod/eventdesk/storage/memory"
)

const addr = "203.0.113.10"

func newTestTracker(t *testing.T) (*Tracker, *memory.Repository, *fakeClock) {
	t.Helper()
	repo := memory.NewRepository()
	clock := newFakeClock(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	return NewTracker(repo, WithTrackerClock(clock.Now)), repo, clock
}

func TestTracker_LocksAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	tr, _, _ := newTestTracker(t)

	remaining, err := tr.RemainingAttempts(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, MaxAttempts, remaining)

	for i := 1; i < MaxAttempts; i++ {
		locked, err := tr.RecordFailure(ctx, addr)
		require.NoError(t, err)
		assert.False(t, locked)

		remaining, err := tr.RemainingAttempts(ctx, addr)
		require.NoError(t, err)
		assert.Equal(t, MaxAttempts-i, remaining)

		isLocked, err := tr.IsLocked(ctx, addr)
		require.NoError(t, err)
		assert.False(t, isLocked)
	}

	locked, err := tr.RecordFailure(ctx, addr)
	require.NoError(t, err)
	assert.True(t, locked)

	isLocked, err := tr.IsLocked(ctx, addr)
	require.NoError(t, err)
	assert.True(t, isLocked)

	remaining, err = tr.RemainingAttempts(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestTracker_LockExpiresExactlyAtLockedUntil(t *testing.T) {
	ctx := context.Background()
	tr, repo, clock := newTestTracker(t)
	start := clock.Now()

	for range MaxAttempts {
		_, err := tr.RecordFailure(ctx, addr)
		require.NoError(t, err)
	}
	until, ok, err := tr.LockedUntil(ctx, addr)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, until.Equal(start.Add(LockoutDuration)))

	clock.Set(until.Add(-time.Millisecond))
	locked, err := tr.IsLocked(ctx, addr)
	require.NoError(t, err)
	assert.True(t, locked)
	_, err = repo.GetLoginAttempt(ctx, addr)
	require.NoError(t, err)

	clock.Set(until)
	locked, err = tr.IsLocked(ctx, addr)
	require.NoError(t, err)
	assert.False(t, locked)

	_, err = repo.GetLoginAttempt(ctx, addr)
	assert.ErrorIs(t, err, storage.ErrNotFound, "expired lock clears the whole record")

	remaining, err := tr.RemainingAttempts(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, MaxAttempts, remaining)
}

func TestTracker_ClearResetsCount(t *testing.T) {
	ctx := context.Background()
	tr, repo, _ := newTestTracker(t)

	for range 3 {
		_, err := tr.RecordFailure(ctx, addr)
		require.NoError(t, err)
	}
	require.NoError(t, tr.Clear(ctx, addr))
	require.NoError(t, tr.Clear(ctx, addr))

	_, err := tr.RecordFailure(ctx, addr)
	require.NoError(t, err)
	rec, err := repo.GetLoginAttempt(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Attempts)
}

func TestTracker_AddressesAreIndependent(t *testing.T) {
	ctx := context.Background()
	tr, _, _ := newTestTracker(t)

	for range MaxAttempts {
		_, err := tr.RecordFailure(ctx, addr)
		require.NoError(t, err)
	}
	locked, err := tr.IsLocked(ctx, "198.51.100.2")
	require.NoError(t, err)
	assert.False(t, locked)

	_, ok, err := tr.LockedUntil(ctx, "198.51.100.2")
	require.NoError(t, err)
	assert.False(t, ok)
}
