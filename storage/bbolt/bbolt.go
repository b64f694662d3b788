// Package bbolt provides a BBolt-backed storage repository.
//
// Each record kind lives in its own bucket keyed by a big-endian uint64 ID
// drawn from the bucket sequence. Records are JSON encoded. Attendee emails
// are indexed, lower-cased, in a separate bucket to enforce uniqueness.
package bbolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/jmcleod/eventdesk/storage"
)

var (
	bucketAttendees     = []byte("attendees")
	bucketAttendeeEmail = []byte("attendee_emails")
	bucketActivities    = []byte("activities")
	bucketAnnouncements = []byte("announcements")
	bucketSettings      = []byte("settings")
	bucketLoginAttempts = []byte("login_attempts")
)

// Store implements storage.Repository backed by a BBolt database.
type Store struct {
	db *bbolt.DB
}

var _ storage.Repository = (*Store)(nil)

// NewRepository returns a Repository backed by the given BBolt database.
// Buckets are created and default settings seeded if missing.
func NewRepository(db *bbolt.DB) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketAttendees, bucketAttendeeEmail, bucketActivities,
			bucketAnnouncements, bucketSettings, bucketLoginAttempts} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		settings := tx.Bucket(bucketSettings)
		for k, v := range storage.DefaultSettings {
			if settings.Get([]byte(k)) == nil {
				if err := settings.Put([]byte(k), []byte(v)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewRepositoryFromFile opens a BBolt database at the given path and returns a new Repository.
func NewRepositoryFromFile(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	s, err := NewRepository(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

func emailKey(email string) []byte {
	return []byte(strings.ToLower(email))
}

func getJSON(b *bbolt.Bucket, key []byte, v any) error {
	data := b.Get(key)
	if data == nil {
		return storage.ErrNotFound
	}
	return json.Unmarshal(data, v)
}

func putJSON(b *bbolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

func nextID(b *bbolt.Bucket) (int64, error) {
	seq, err := b.NextSequence()
	if err != nil {
		return 0, err
	}
	return int64(seq), nil
}

func newestFirst(ai, bi int64, at, bt time.Time) bool {
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return ai > bi
}

// ---------------------------------------------------------------------------
// Attendees
// ---------------------------------------------------------------------------

func (s *Store) InsertAttendee(_ context.Context, a *storage.Attendee) (int64, error) {
	rec := *a
	err := s.db.Update(func(tx *bbolt.Tx) error {
		emails := tx.Bucket(bucketAttendeeEmail)
		if emails.Get(emailKey(rec.Email)) != nil {
			return fmt.Errorf("%s: %w", rec.Email, storage.ErrDuplicate)
		}
		b := tx.Bucket(bucketAttendees)
		id, err := nextID(b)
		if err != nil {
			return err
		}
		rec.ID = id
		rec.CreatedAt = storage.StampCreated(rec.CreatedAt)
		if rec.PaymentStatus == "" {
			rec.PaymentStatus = storage.PaymentPending
		}
		if err := putJSON(b, itob(id), &rec); err != nil {
			return err
		}
		return emails.Put(emailKey(rec.Email), itob(id))
	})
	if err != nil {
		return 0, err
	}
	return rec.ID, nil
}

func (s *Store) GetAttendee(_ context.Context, id int64) (*storage.Attendee, error) {
	var a storage.Attendee
	err := s.db.View(func(tx *bbolt.Tx) error {
		return getJSON(tx.Bucket(bucketAttendees), itob(id), &a)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) GetAttendeeByEmail(_ context.Context, email string) (*storage.Attendee, error) {
	var a storage.Attendee
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketAttendeeEmail).Get(emailKey(email))
		if id == nil {
			return storage.ErrNotFound
		}
		return getJSON(tx.Bucket(bucketAttendees), id, &a)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) ListAttendees(_ context.Context) ([]storage.Attendee, error) {
	out := []storage.Attendee{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAttendees).ForEach(func(_, v []byte) error {
			var a storage.Attendee
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			out = append(out, a)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].ID, out[j].ID, out[i].CreatedAt, out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateAttendee(_ context.Context, a *storage.Attendee) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAttendees)
		var existing storage.Attendee
		if err := getJSON(b, itob(a.ID), &existing); err != nil {
			return err
		}
		emails := tx.Bucket(bucketAttendeeEmail)
		oldKey, newKey := emailKey(existing.Email), emailKey(a.Email)
		if string(oldKey) != string(newKey) {
			if owner := emails.Get(newKey); owner != nil && btoi(owner) != a.ID {
				return fmt.Errorf("%s: %w", a.Email, storage.ErrDuplicate)
			}
			if err := emails.Delete(oldKey); err != nil {
				return err
			}
			if err := emails.Put(newKey, itob(a.ID)); err != nil {
				return err
			}
		}
		rec := *a
		rec.CreatedAt = existing.CreatedAt
		return putJSON(b, itob(a.ID), &rec)
	})
}

func (s *Store) DeleteAttendee(_ context.Context, id int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAttendees)
		var existing storage.Attendee
		if err := getJSON(b, itob(id), &existing); err != nil {
			return err
		}
		if err := tx.Bucket(bucketAttendeeEmail).Delete(emailKey(existing.Email)); err != nil {
			return err
		}
		return b.Delete(itob(id))
	})
}

// ---------------------------------------------------------------------------
// Activities
// ---------------------------------------------------------------------------

func (s *Store) InsertActivity(_ context.Context, a *storage.Activity) (int64, error) {
	rec := *a
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketActivities)
		id, err := nextID(b)
		if err != nil {
			return err
		}
		rec.ID = id
		rec.CreatedAt = storage.StampCreated(rec.CreatedAt)
		if rec.Status == "" {
			rec.Status = storage.ActivityPending
		}
		return putJSON(b, itob(id), &rec)
	})
	if err != nil {
		return 0, err
	}
	return rec.ID, nil
}

func (s *Store) GetActivity(_ context.Context, id int64) (*storage.Activity, error) {
	var a storage.Activity
	err := s.db.View(func(tx *bbolt.Tx) error {
		return getJSON(tx.Bucket(bucketActivities), itob(id), &a)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) ListActivities(_ context.Context, status string) ([]storage.Activity, error) {
	out := []storage.Activity{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketActivities).ForEach(func(_, v []byte) error {
			var a storage.Activity
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			if status == "" || a.Status == status {
				out = append(out, a)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].ID, out[j].ID, out[i].CreatedAt, out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateActivity(_ context.Context, a *storage.Activity) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketActivities)
		var existing storage.Activity
		if err := getJSON(b, itob(a.ID), &existing); err != nil {
			return err
		}
		rec := *a
		rec.CreatedAt = existing.CreatedAt
		return putJSON(b, itob(a.ID), &rec)
	})
}

func (s *Store) DeleteActivity(_ context.Context, id int64) error {
	return s.deleteByID(bucketActivities, id)
}

func (s *Store) deleteByID(bucket []byte, id int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		if b.Get(itob(id)) == nil {
			return storage.ErrNotFound
		}
		return b.Delete(itob(id))
	})
}

// ---------------------------------------------------------------------------
// Announcements
// ---------------------------------------------------------------------------

func (s *Store) InsertAnnouncement(_ context.Context, a *storage.Announcement) (int64, error) {
	rec := *a
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAnnouncements)
		id, err := nextID(b)
		if err != nil {
			return err
		}
		rec.ID = id
		rec.CreatedAt = storage.StampCreated(rec.CreatedAt)
		return putJSON(b, itob(id), &rec)
	})
	if err != nil {
		return 0, err
	}
	return rec.ID, nil
}

func (s *Store) GetAnnouncement(_ context.Context, id int64) (*storage.Announcement, error) {
	var a storage.Announcement
	err := s.db.View(func(tx *bbolt.Tx) error {
		return getJSON(tx.Bucket(bucketAnnouncements), itob(id), &a)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) ListAnnouncements(_ context.Context, activeOnly bool) ([]storage.Announcement, error) {
	out := []storage.Announcement{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAnnouncements).ForEach(func(_, v []byte) error {
			var a storage.Announcement
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			if !activeOnly || a.Active {
				out = append(out, a)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].ID, out[j].ID, out[i].CreatedAt, out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) SetAnnouncementActive(_ context.Context, id int64, active bool) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAnnouncements)
		var a storage.Announcement
		if err := getJSON(b, itob(id), &a); err != nil {
			return err
		}
		a.Active = active
		return putJSON(b, itob(id), &a)
	})
}

func (s *Store) DeleteAnnouncement(_ context.Context, id int64) error {
	return s.deleteByID(bucketAnnouncements, id)
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

func (s *Store) GetSetting(_ context.Context, key string) (string, error) {
	var value string
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketSettings).Get([]byte(key))
		if v == nil {
			return storage.ErrNotFound
		}
		value = string(v)
		return nil
	})
	return value, err
}

func (s *Store) SetSetting(_ context.Context, key, value string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSettings).Put([]byte(key), []byte(value))
	})
}

func (s *Store) ListSettings(_ context.Context) (map[string]string, error) {
	settings := make(map[string]string)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSettings).ForEach(func(k, v []byte) error {
			settings[string(k)] = string(v)
			return nil
		})
	})
	return settings, err
}

// ---------------------------------------------------------------------------
// Login attempts
// ---------------------------------------------------------------------------

func (s *Store) GetLoginAttempt(_ context.Context, address string) (*storage.LoginAttempt, error) {
	var rec storage.LoginAttempt
	err := s.db.View(func(tx *bbolt.Tx) error {
		return getJSON(tx.Bucket(bucketLoginAttempts), []byte(address), &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) RecordLoginFailure(_ context.Context, address string, at time.Time, lockAfter int, lockUntil time.Time) (*storage.LoginAttempt, error) {
	var rec storage.LoginAttempt
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketLoginAttempts)
		if err := getJSON(b, []byte(address), &rec); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		rec.Address = address
		rec.Attempts++
		rec.LastAttempt = at.UTC().Truncate(time.Millisecond)
		rec.LockedUntil = nil
		if rec.Attempts >= lockAfter {
			until := lockUntil.UTC().Truncate(time.Millisecond)
			rec.LockedUntil = &until
		}
		return putJSON(b, []byte(address), &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) DeleteLoginAttempt(_ context.Context, address string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketLoginAttempts).Delete([]byte(address))
	})
}
