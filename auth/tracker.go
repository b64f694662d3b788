package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jmcleod/eventdesk/storage"
)

const (
	// MaxAttempts is the number of failures that triggers a lockout.
	MaxAttempts = 5
	// LockoutDuration is how long a locked address is rejected.
	LockoutDuration = 15 * time.Minute
)

// AttemptStore persists per-address failure counters.
type AttemptStore interface {
	GetLoginAttempt(ctx context.Context, address string) (*storage.LoginAttempt, error)
	RecordLoginFailure(ctx context.Context, address string, at time.Time, lockAfter int, lockUntil time.Time) (*storage.LoginAttempt, error)
	DeleteLoginAttempt(ctx context.Context, address string) error
}

// Tracker counts failed logins per source address and locks an address
// out for LockoutDuration once MaxAttempts is reached. Expired locks are
// cleared lazily on the next IsLocked call.
type Tracker struct {
	store AttemptStore
	now   Clock
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithTrackerClock overrides the time source.
func WithTrackerClock(now Clock) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker returns a Tracker over store.
func NewTracker(store AttemptStore, opts ...TrackerOption) *Tracker {
	t := &Tracker{store: store, now: systemClock}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) lookup(ctx context.Context, address string) (*storage.LoginAttempt, error) {
	rec, err := t.store.GetLoginAttempt(ctx, address)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// IsLocked reports whether address is currently locked out. A lock whose
// expiry has passed causes the whole record to be deleted.
func (t *Tracker) IsLocked(ctx context.Context, address string) (bool, error) {
	rec, err := t.lookup(ctx, address)
	if err != nil || rec == nil || rec.LockedUntil == nil {
		return false, err
	}
	if t.now().Before(*rec.LockedUntil) {
		return true, nil
	}
	return false, t.store.DeleteLoginAttempt(ctx, address)
}

// LockedUntil returns the lock expiry for address, if it is locked.
func (t *Tracker) LockedUntil(ctx context.Context, address string) (time.Time, bool, error) {
	rec, err := t.lookup(ctx, address)
	if err != nil || rec == nil || rec.LockedUntil == nil {
		return time.Time{}, false, err
	}
	if !t.now().Before(*rec.LockedUntil) {
		return time.Time{}, false, nil
	}
	return *rec.LockedUntil, true, nil
}

// RecordFailure counts a failed login and reports whether the address is
// now locked.
func (t *Tracker) RecordFailure(ctx context.Context, address string) (bool, error) {
	now := t.now()
	rec, err := t.store.RecordLoginFailure(ctx, address, now, MaxAttempts, now.Add(LockoutDuration))
	if err != nil {
		return false, err
	}
	return rec.Attempts >= MaxAttempts, nil
}

// Clear removes any failure record for address.
func (t *Tracker) Clear(ctx context.Context, address string) error {
	return t.store.DeleteLoginAttempt(ctx, address)
}

// RemainingAttempts returns how many failures address may still make
// before it is locked.
func (t *Tracker) RemainingAttempts(ctx context.Context, address string) (int, error) {
	rec, err := t.lookup(ctx, address)
	if err != nil {
		return 0, err
	}
	if rec == nil {
		return MaxAttempts, nil
	}
	return max(MaxAttempts-rec.Attempts, 0), nil
}
