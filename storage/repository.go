// Package storage provides the data-access layer for event records: attendees,
// activities, announcements, settings and login attempt state.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write would violate a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// AttendeeStore persists RSVPs.
type AttendeeStore interface {
	// InsertAttendee stores a new attendee and returns its ID. The email
	// must be unique; a clash returns ErrDuplicate.
	InsertAttendee(ctx context.Context, a *Attendee) (int64, error)
	GetAttendee(ctx context.Context, id int64) (*Attendee, error)
	GetAttendeeByEmail(ctx context.Context, email string) (*Attendee, error)
	// ListAttendees returns every attendee, newest first.
	ListAttendees(ctx context.Context) ([]Attendee, error)
	// UpdateAttendee replaces all mutable fields of the attendee with a.ID.
	UpdateAttendee(ctx context.Context, a *Attendee) error
	DeleteAttendee(ctx context.Context, id int64) error
}

// ActivityStore persists proposed and scheduled activities.
type ActivityStore interface {
	InsertActivity(ctx context.Context, a *Activity) (int64, error)
	GetActivity(ctx context.Context, id int64) (*Activity, error)
	// ListActivities returns activities newest first. An empty status
	// returns all of them.
	ListActivities(ctx context.Context, status string) ([]Activity, error)
	UpdateActivity(ctx context.Context, a *Activity) error
	DeleteActivity(ctx context.Context, id int64) error
}

// AnnouncementStore persists announcements.
type AnnouncementStore interface {
	InsertAnnouncement(ctx context.Context, a *Announcement) (int64, error)
	GetAnnouncement(ctx context.Context, id int64) (*Announcement, error)
	// ListAnnouncements returns announcements newest first.
	ListAnnouncements(ctx context.Context, activeOnly bool) ([]Announcement, error)
	SetAnnouncementActive(ctx context.Context, id int64, active bool) error
	DeleteAnnouncement(ctx context.Context, id int64) error
}

// SettingStore persists global key/value settings.
type SettingStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	ListSettings(ctx context.Context) (map[string]string, error)
}

// LoginAttemptStore persists failed-login counters keyed by source address.
type LoginAttemptStore interface {
	GetLoginAttempt(ctx context.Context, address string) (*LoginAttempt, error)
	// RecordLoginFailure atomically increments the counter for address
	// (creating it at 1 if absent) and stamps lastAttempt. When the new
	// count reaches lockAfter, locked_until is set to lockUntil; otherwise
	// it is cleared. The updated record is returned.
	RecordLoginFailure(ctx context.Context, address string, at time.Time, lockAfter int, lockUntil time.Time) (*LoginAttempt, error)
	// DeleteLoginAttempt removes the record. Deleting a missing record is
	// not an error.
	DeleteLoginAttempt(ctx context.Context, address string) error
}

// Repository is the full record store used by the API.
type Repository interface {
	AttendeeStore
	ActivityStore
	AnnouncementStore
	SettingStore
	LoginAttemptStore
	Close() error
}
