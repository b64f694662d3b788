// Package sqlite implements storage.Repository on an embedded SQLite
// database using the pure-Go modernc.org/sqlite driver.
//
// Timestamps are stored as INTEGER Unix milliseconds. The store keeps a
// single open connection so that in-memory databases are shared and writes
// are serialised.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jmcleod/eventdesk/storage"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store implements storage.Repository backed by SQLite.
type Store struct {
	db *sql.DB
}

var _ storage.Repository = (*Store)(nil)

// Open opens (creating if needed) the database at path, applies migrations
// and returns a Store.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s, err := NewRepository(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewRepository wraps an existing handle, migrating it first.
func NewRepository(ctx context.Context, db *sql.DB) (*Store, error) {
	if err := Migrate(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// ---------------------------------------------------------------------------
// Attendees
// ---------------------------------------------------------------------------

const attendeeColumns = `id, name, email, dietary_restrictions, plus_one, arrival_time,
	departure_time, excited_about, payment_status, created_at`

func (s *Store) InsertAttendee(ctx context.Context, a *storage.Attendee) (int64, error) {
	status := a.PaymentStatus
	if status == "" {
		status = storage.PaymentPending
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO attendees (name, email, dietary_restrictions, plus_one, arrival_time,
			departure_time, excited_about, payment_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Name, a.Email, a.DietaryRestrictions, a.PlusOne, a.ArrivalTime,
		a.DepartureTime, a.ExcitedAbout, status, toMillis(storage.StampCreated(a.CreatedAt)))
	if err != nil {
		return 0, mapErr(err)
	}
	return res.LastInsertId()
}

func (s *Store) GetAttendee(ctx context.Context, id int64) (*storage.Attendee, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attendeeColumns+` FROM attendees WHERE id = ?`, id)
	return scanAttendee(row)
}

func (s *Store) GetAttendeeByEmail(ctx context.Context, email string) (*storage.Attendee, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attendeeColumns+` FROM attendees WHERE email = ?`, email)
	return scanAttendee(row)
}

func (s *Store) ListAttendees(ctx context.Context) ([]storage.Attendee, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+attendeeColumns+` FROM attendees ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []storage.Attendee{}
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAttendee(ctx context.Context, a *storage.Attendee) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE attendees SET name = ?, email = ?, dietary_restrictions = ?, plus_one = ?,
			arrival_time = ?, departure_time = ?, excited_about = ?, payment_status = ?
		WHERE id = ?`,
		a.Name, a.Email, a.DietaryRestrictions, a.PlusOne, a.ArrivalTime,
		a.DepartureTime, a.ExcitedAbout, a.PaymentStatus, a.ID)
	if err != nil {
		return mapErr(err)
	}
	return requireAffected(res)
}

func (s *Store) DeleteAttendee(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attendees WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ---------------------------------------------------------------------------
// Activities
// ---------------------------------------------------------------------------

const activityColumns = `id, title, description, host_name, host_email, duration,
	equipment_needed, capacity, time_preference, activity_type, notes, status,
	scheduled_start, scheduled_end, location, created_at`

func (s *Store) InsertActivity(ctx context.Context, a *storage.Activity) (int64, error) {
	status := a.Status
	if status == "" {
		status = storage.ActivityPending
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (title, description, host_name, host_email, duration,
			equipment_needed, capacity, time_preference, activity_type, notes, status,
			scheduled_start, scheduled_end, location, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Title, a.Description, a.HostName, a.HostEmail, a.Duration,
		a.EquipmentNeeded, nullInt(a.Capacity), a.TimePreference, a.ActivityType, a.Notes, status,
		a.ScheduledStart, a.ScheduledEnd, a.Location, toMillis(storage.StampCreated(a.CreatedAt)))
	if err != nil {
		return 0, mapErr(err)
	}
	return res.LastInsertId()
}

func (s *Store) GetActivity(ctx context.Context, id int64) (*storage.Activity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)
	return scanActivity(row)
}

func (s *Store) ListActivities(ctx context.Context, status string) ([]storage.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []storage.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateActivity(ctx context.Context, a *storage.Activity) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE activities SET title = ?, description = ?, host_name = ?, host_email = ?,
			duration = ?, equipment_needed = ?, capacity = ?, time_preference = ?,
			activity_type = ?, notes = ?, status = ?, scheduled_start = ?,
			scheduled_end = ?, location = ?
		WHERE id = ?`,
		a.Title, a.Description, a.HostName, a.HostEmail,
		a.Duration, a.EquipmentNeeded, nullInt(a.Capacity), a.TimePreference,
		a.ActivityType, a.Notes, a.Status, a.ScheduledStart,
		a.ScheduledEnd, a.Location, a.ID)
	if err != nil {
		return mapErr(err)
	}
	return requireAffected(res)
}

func (s *Store) DeleteActivity(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ---------------------------------------------------------------------------
// Announcements
// ---------------------------------------------------------------------------

func (s *Store) InsertAnnouncement(ctx context.Context, a *storage.Announcement) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO announcements (message, active, created_at) VALUES (?, ?, ?)`,
		a.Message, a.Active, toMillis(storage.StampCreated(a.CreatedAt)))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetAnnouncement(ctx context.Context, id int64) (*storage.Announcement, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, message, active, created_at FROM announcements WHERE id = ?`, id)
	return scanAnnouncement(row)
}

func (s *Store) ListAnnouncements(ctx context.Context, activeOnly bool) ([]storage.Announcement, error) {
	query := `SELECT id, message, active, created_at FROM announcements`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []storage.Announcement{}
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) SetAnnouncementActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE announcements SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) DeleteAnnouncement(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	return value, err
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, nowMillis())
	return err
}

func (s *Store) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// ---------------------------------------------------------------------------
// Login attempts
// ---------------------------------------------------------------------------

func (s *Store) GetLoginAttempt(ctx context.Context, address string) (*storage.LoginAttempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT address, attempts, last_attempt, locked_until FROM login_attempts WHERE address = ?`, address)
	return scanLoginAttempt(row)
}

func (s *Store) RecordLoginFailure(ctx context.Context, address string, at time.Time, lockAfter int, lockUntil time.Time) (*storage.LoginAttempt, error) {
	lock := toMillis(lockUntil)
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO login_attempts (address, attempts, last_attempt, locked_until)
		VALUES (?, 1, ?, CASE WHEN 1 >= ? THEN ? ELSE NULL END)
		ON CONFLICT(address) DO UPDATE SET
			attempts = login_attempts.attempts + 1,
			last_attempt = excluded.last_attempt,
			locked_until = CASE WHEN login_attempts.attempts + 1 >= ? THEN ? ELSE NULL END
		RETURNING address, attempts, last_attempt, locked_until`,
		address, toMillis(at), lockAfter, lock, lockAfter, lock)
	return scanLoginAttempt(row)
}

func (s *Store) DeleteLoginAttempt(ctx context.Context, address string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM login_attempts WHERE address = ?`, address)
	return err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type scanner interface {
	Scan(dest ...any) error
}

func scanAttendee(row scanner) (*storage.Attendee, error) {
	var a storage.Attendee
	var created int64
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.DietaryRestrictions, &a.PlusOne,
		&a.ArrivalTime, &a.DepartureTime, &a.ExcitedAbout, &a.PaymentStatus, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt = fromMillis(created)
	return &a, nil
}

func scanActivity(row scanner) (*storage.Activity, error) {
	var a storage.Activity
	var capacity sql.NullInt64
	var created int64
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.HostName, &a.HostEmail, &a.Duration,
		&a.EquipmentNeeded, &capacity, &a.TimePreference, &a.ActivityType, &a.Notes, &a.Status,
		&a.ScheduledStart, &a.ScheduledEnd, &a.Location, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if capacity.Valid {
		c := int(capacity.Int64)
		a.Capacity = &c
	}
	a.CreatedAt = fromMillis(created)
	return &a, nil
}

func scanAnnouncement(row scanner) (*storage.Announcement, error) {
	var a storage.Announcement
	var created int64
	err := row.Scan(&a.ID, &a.Message, &a.Active, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt = fromMillis(created)
	return &a, nil
}

func scanLoginAttempt(row scanner) (*storage.LoginAttempt, error) {
	var rec storage.LoginAttempt
	var last int64
	var locked sql.NullInt64
	err := row.Scan(&rec.Address, &rec.Attempts, &last, &locked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.LastAttempt = fromMillis(last)
	if locked.Valid {
		t := fromMillis(locked.Int64)
		rec.LockedUntil = &t
	}
	return &rec, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// mapErr translates unique-constraint violations into storage.ErrDuplicate.
func mapErr(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return fmt.Errorf("%v: %w", err, storage.ErrDuplicate)
	}
	return err
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nowMillis() int64 { return time.Now().UnixMilli() }
