// Package storagetest holds a conformance suite shared by every
// storage.Repository backend.
package storagetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/eventdesk/storage"
)

// Factory returns a fresh, empty repository. The suite closes it.
type Factory func(t *testing.T) storage.Repository

// Run exercises the full storage.Repository contract against newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("Attendees", func(t *testing.T) { testAttendees(t, open(t, newRepo)) })
	t.Run("Activities", func(t *testing.T) { testActivities(t, open(t, newRepo)) })
	t.Run("Announcements", func(t *testing.T) { testAnnouncements(t, open(t, newRepo)) })
	t.Run("Settings", func(t *testing.T) { testSettings(t, open(t, newRepo)) })
	t.Run("LoginAttempts", func(t *testing.T) { testLoginAttempts(t, open(t, newRepo)) })
	t.Run("ConcurrentFailures", func(t *testing.T) { testConcurrentFailures(t, open(t, newRepo)) })
}

func open(t *testing.T, newRepo Factory) storage.Repository {
	t.Helper()
	repo := newRepo(t)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func testAttendees(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	id1, err := repo.InsertAttendee(ctx, &storage.Attendee{
		Name: "Ada", Email: "ada@example.com", PlusOne: true, CreatedAt: base,
	})
	require.NoError(t, err)
	id2, err := repo.InsertAttendee(ctx, &storage.Attendee{
		Name: "Grace", Email: "grace@example.com", ExcitedAbout: "the lake", CreatedAt: base.Add(time.Minute),
	})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	_, err = repo.InsertAttendee(ctx, &storage.Attendee{Name: "Dup", Email: "ada@example.com"})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	got, err := repo.GetAttendee(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
	assert.True(t, got.PlusOne)
	assert.Equal(t, storage.PaymentPending, got.PaymentStatus)
	assert.True(t, base.Equal(got.CreatedAt), "created_at = %v", got.CreatedAt)

	byEmail, err := repo.GetAttendeeByEmail(ctx, "grace@example.com")
	require.NoError(t, err)
	assert.Equal(t, id2, byEmail.ID)

	_, err = repo.GetAttendee(ctx, 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	list, err := repo.ListAttendees(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, id2, list[0].ID, "newest first")

	got.PaymentStatus = storage.PaymentCompleted
	got.DietaryRestrictions = "vegan"
	require.NoError(t, repo.UpdateAttendee(ctx, got))
	got, err = repo.GetAttendee(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, storage.PaymentCompleted, got.PaymentStatus)
	assert.Equal(t, "vegan", got.DietaryRestrictions)

	got.Email = "grace@example.com"
	assert.ErrorIs(t, repo.UpdateAttendee(ctx, got), storage.ErrDuplicate)

	assert.ErrorIs(t, repo.UpdateAttendee(ctx, &storage.Attendee{ID: 9999, Email: "x@example.com"}), storage.ErrNotFound)

	require.NoError(t, repo.DeleteAttendee(ctx, id1))
	_, err = repo.GetAttendee(ctx, id1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteAttendee(ctx, id1), storage.ErrNotFound)
}

func testActivities(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	capacity := 12

	id1, err := repo.InsertActivity(ctx, &storage.Activity{
		Title: "Board games", HostName: "Ada", HostEmail: "ada@example.com",
		Duration: 120, Capacity: &capacity, ActivityType: "Gaming", TimePreference: "Evening",
		CreatedAt: base,
	})
	require.NoError(t, err)
	id2, err := repo.InsertActivity(ctx, &storage.Activity{
		Title: "Hike", HostName: "Grace", Duration: 180, CreatedAt: base.Add(time.Minute),
	})
	require.NoError(t, err)

	got, err := repo.GetActivity(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, storage.ActivityPending, got.Status)
	require.NotNil(t, got.Capacity)
	assert.Equal(t, 12, *got.Capacity)

	hike, err := repo.GetActivity(ctx, id2)
	require.NoError(t, err)
	assert.Nil(t, hike.Capacity)

	got.Status = storage.ActivityScheduled
	got.ScheduledStart = "2026-06-01T18:00"
	got.ScheduledEnd = "2026-06-01T20:00"
	got.Location = "Main hall"
	got.Capacity = nil
	require.NoError(t, repo.UpdateActivity(ctx, got))

	got, err = repo.GetActivity(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, storage.ActivityScheduled, got.Status)
	assert.Equal(t, "Main hall", got.Location)
	assert.Equal(t, "2026-06-01T18:00", got.ScheduledStart)
	assert.Nil(t, got.Capacity)
	assert.True(t, base.Equal(got.CreatedAt))

	all, err := repo.ListActivities(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, id2, all[0].ID)

	scheduled, err := repo.ListActivities(ctx, storage.ActivityScheduled)
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, id1, scheduled[0].ID)

	assert.ErrorIs(t, repo.UpdateActivity(ctx, &storage.Activity{ID: 9999}), storage.ErrNotFound)
	require.NoError(t, repo.DeleteActivity(ctx, id2))
	assert.ErrorIs(t, repo.DeleteActivity(ctx, id2), storage.ErrNotFound)
	_, err = repo.GetActivity(ctx, id2)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testAnnouncements(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	id1, err := repo.InsertAnnouncement(ctx, &storage.Announcement{Message: "Welcome", Active: true, CreatedAt: base})
	require.NoError(t, err)
	id2, err := repo.InsertAnnouncement(ctx, &storage.Announcement{Message: "Bring snacks", Active: true, CreatedAt: base.Add(time.Minute)})
	require.NoError(t, err)

	list, err := repo.ListAnnouncements(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, id2, list[0].ID)

	require.NoError(t, repo.SetAnnouncementActive(ctx, id1, false))
	got, err := repo.GetAnnouncement(ctx, id1)
	require.NoError(t, err)
	assert.False(t, got.Active)

	active, err := repo.ListAnnouncements(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Bring snacks", active[0].Message)

	assert.ErrorIs(t, repo.SetAnnouncementActive(ctx, 9999, true), storage.ErrNotFound)
	require.NoError(t, repo.DeleteAnnouncement(ctx, id1))
	assert.ErrorIs(t, repo.DeleteAnnouncement(ctx, id1), storage.ErrNotFound)
}

func testSettings(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	v, err := repo.GetSetting(ctx, storage.SettingRSVPOpen)
	require.NoError(t, err)
	assert.Equal(t, "true", v)
	v, err = repo.GetSetting(ctx, storage.SettingActivitySubmissionsOpen)
	require.NoError(t, err)
	assert.Equal(t, "true", v)

	_, err = repo.GetSetting(ctx, storage.SettingLocation)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, repo.SetSetting(ctx, storage.SettingLocation, "Cabin"))
	require.NoError(t, repo.SetSetting(ctx, storage.SettingRSVPOpen, "false"))
	require.NoError(t, repo.SetSetting(ctx, storage.SettingLocation, "Lodge"))

	all, err := repo.ListSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Lodge", all[storage.SettingLocation])
	assert.Equal(t, "false", all[storage.SettingRSVPOpen])
	assert.Equal(t, "true", all[storage.SettingActivitySubmissionsOpen])
}

func testLoginAttempts(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	addr := "203.0.113.7"
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lockUntil := now.Add(15 * time.Minute)

	_, err := repo.GetLoginAttempt(ctx, addr)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	for i := 1; i <= 4; i++ {
		rec, err := repo.RecordLoginFailure(ctx, addr, now, 5, lockUntil)
		require.NoError(t, err)
		assert.Equal(t, i, rec.Attempts)
		assert.Nil(t, rec.LockedUntil)
	}

	rec, err := repo.RecordLoginFailure(ctx, addr, now.Add(time.Second), 5, lockUntil)
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Attempts)
	require.NotNil(t, rec.LockedUntil)
	assert.True(t, lockUntil.Equal(*rec.LockedUntil))

	stored, err := repo.GetLoginAttempt(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, addr, stored.Address)
	assert.Equal(t, 5, stored.Attempts)
	assert.True(t, now.Add(time.Second).Equal(stored.LastAttempt))
	require.NotNil(t, stored.LockedUntil)
	assert.True(t, lockUntil.Equal(*stored.LockedUntil))

	_, err = repo.GetLoginAttempt(ctx, "198.51.100.1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, repo.DeleteLoginAttempt(ctx, addr))
	require.NoError(t, repo.DeleteLoginAttempt(ctx, addr))
	_, err = repo.GetLoginAttempt(ctx, addr)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	rec, err = repo.RecordLoginFailure(ctx, addr, now, 5, lockUntil)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Attempts)
}

func testConcurrentFailures(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	addr := "192.0.2.44"
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.RecordLoginFailure(ctx, addr, now, 100, now.Add(time.Hour))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rec, err := repo.GetLoginAttempt(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, n, rec.Attempts)
}
