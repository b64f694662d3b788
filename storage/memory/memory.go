// Package memory provides a thread-safe in-memory implementation of storage.Repository.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmcleod/eventdesk/storage"
)

// Repository is a thread-safe in-memory implementation of storage.Repository.
// Suitable for testing, demos, and single-process use cases.
type Repository struct {
	mu            sync.RWMutex
	nextID        int64
	attendees     map[int64]storage.Attendee
	activities    map[int64]storage.Activity
	announcements map[int64]storage.Announcement
	settings      map[string]string
	attempts      map[string]storage.LoginAttempt
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository creates a new in-memory Repository seeded with the default settings.
func NewRepository() *Repository {
	r := &Repository{
		attendees:     make(map[int64]storage.Attendee),
		activities:    make(map[int64]storage.Activity),
		announcements: make(map[int64]storage.Announcement),
		settings:      make(map[string]string),
		attempts:      make(map[string]storage.LoginAttempt),
	}
	for k, v := range storage.DefaultSettings {
		r.settings[k] = v
	}
	return r
}

// Close is a no-op.
func (r *Repository) Close() error { return nil }

func (r *Repository) allocID() int64 {
	r.nextID++
	return r.nextID
}

func cloneActivity(a storage.Activity) *storage.Activity {
	if a.Capacity != nil {
		c := *a.Capacity
		a.Capacity = &c
	}
	return &a
}

func cloneAttempt(a storage.LoginAttempt) *storage.LoginAttempt {
	if a.LockedUntil != nil {
		t := *a.LockedUntil
		a.LockedUntil = &t
	}
	return &a
}

// newestFirst orders by created_at then id, both descending.
func newestFirst(ai, bi int64, at, bt time.Time) bool {
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return ai > bi
}

// ---------------------------------------------------------------------------
// Attendees
// ---------------------------------------------------------------------------

func (r *Repository) InsertAttendee(_ context.Context, a *storage.Attendee) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.attendees {
		if strings.EqualFold(existing.Email, a.Email) {
			return 0, storage.ErrDuplicate
		}
	}
	rec := *a
	rec.ID = r.allocID()
	rec.CreatedAt = storage.StampCreated(rec.CreatedAt)
	if rec.PaymentStatus == "" {
		rec.PaymentStatus = storage.PaymentPending
	}
	r.attendees[rec.ID] = rec
	return rec.ID, nil
}

func (r *Repository) GetAttendee(_ context.Context, id int64) (*storage.Attendee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.attendees[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &a, nil
}

func (r *Repository) GetAttendeeByEmail(_ context.Context, email string) (*storage.Attendee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.attendees {
		if strings.EqualFold(a.Email, email) {
			return &a, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r *Repository) ListAttendees(_ context.Context) ([]storage.Attendee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]storage.Attendee, 0, len(r.attendees))
	for _, a := range r.attendees {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].ID, out[j].ID, out[i].CreatedAt, out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repository) UpdateAttendee(_ context.Context, a *storage.Attendee) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.attendees[a.ID]
	if !ok {
		return storage.ErrNotFound
	}
	for id, other := range r.attendees {
		if id != a.ID && strings.EqualFold(other.Email, a.Email) {
			return storage.ErrDuplicate
		}
	}
	rec := *a
	rec.CreatedAt = existing.CreatedAt
	r.attendees[a.ID] = rec
	return nil
}

func (r *Repository) DeleteAttendee(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.attendees[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.attendees, id)
	return nil
}

// ---------------------------------------------------------------------------
// Activities
// ---------------------------------------------------------------------------

func (r *Repository) InsertActivity(_ context.Context, a *storage.Activity) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := *cloneActivity(*a)
	rec.ID = r.allocID()
	rec.CreatedAt = storage.StampCreated(rec.CreatedAt)
	if rec.Status == "" {
		rec.Status = storage.ActivityPending
	}
	r.activities[rec.ID] = rec
	return rec.ID, nil
}

func (r *Repository) GetActivity(_ context.Context, id int64) (*storage.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.activities[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneActivity(a), nil
}

func (r *Repository) ListActivities(_ context.Context, status string) ([]storage.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]storage.Activity, 0, len(r.activities))
	for _, a := range r.activities {
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, *cloneActivity(a))
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].ID, out[j].ID, out[i].CreatedAt, out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repository) UpdateActivity(_ context.Context, a *storage.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.activities[a.ID]
	if !ok {
		return storage.ErrNotFound
	}
	rec := *cloneActivity(*a)
	rec.CreatedAt = existing.CreatedAt
	r.activities[a.ID] = rec
	return nil
}

func (r *Repository) DeleteActivity(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.activities[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.activities, id)
	return nil
}

// ---------------------------------------------------------------------------
// Announcements
// ---------------------------------------------------------------------------

func (r *Repository) InsertAnnouncement(_ context.Context, a *storage.Announcement) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := *a
	rec.ID = r.allocID()
	rec.CreatedAt = storage.StampCreated(rec.CreatedAt)
	r.announcements[rec.ID] = rec
	return rec.ID, nil
}

func (r *Repository) GetAnnouncement(_ context.Context, id int64) (*storage.Announcement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.announcements[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &a, nil
}

func (r *Repository) ListAnnouncements(_ context.Context, activeOnly bool) ([]storage.Announcement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]storage.Announcement, 0, len(r.announcements))
	for _, a := range r.announcements {
		if activeOnly && !a.Active {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].ID, out[j].ID, out[i].CreatedAt, out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repository) SetAnnouncementActive(_ context.Context, id int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.announcements[id]
	if !ok {
		return storage.ErrNotFound
	}
	a.Active = active
	r.announcements[id] = a
	return nil
}

func (r *Repository) DeleteAnnouncement(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.announcements[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.announcements, id)
	return nil
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

func (r *Repository) GetSetting(_ context.Context, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.settings[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (r *Repository) SetSetting(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[key] = value
	return nil
}

func (r *Repository) ListSettings(_ context.Context) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.settings))
	for k, v := range r.settings {
		out[k] = v
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Login attempts
// ---------------------------------------------------------------------------

func (r *Repository) GetLoginAttempt(_ context.Context, address string) (*storage.LoginAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.attempts[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneAttempt(rec), nil
}

func (r *Repository) RecordLoginFailure(_ context.Context, address string, at time.Time, lockAfter int, lockUntil time.Time) (*storage.LoginAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.attempts[address]
	rec.Address = address
	rec.Attempts++
	rec.LastAttempt = at.UTC().Truncate(time.Millisecond)
	rec.LockedUntil = nil
	if rec.Attempts >= lockAfter {
		until := lockUntil.UTC().Truncate(time.Millisecond)
		rec.LockedUntil = &until
	}
	r.attempts[address] = rec
	return cloneAttempt(rec), nil
}

func (r *Repository) DeleteLoginAttempt(_ context.Context, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempts, address)
	return nil
}
