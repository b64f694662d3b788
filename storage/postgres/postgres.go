// Package postgres implements storage.Repository backed by PostgreSQL.
//
// Attendee emails are unique under a lower(email) index so that uniqueness
// ignores case, matching the other backends. The failed-login counter is a
// single INSERT ... ON CONFLICT DO UPDATE so concurrent failures from one
// address never under-count.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmcleod/eventdesk/storage"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Store implements storage.Repository backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Repository = (*Store)(nil)

// NewRepository returns a Repository backed by the given pgx connection pool.
func NewRepository(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// NewRepositoryFromDSN creates a connection pool from a DSN string, ensures
// the schema exists, and returns a new Repository.
func NewRepositoryFromDSN(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return NewRepository(pool), nil
}

// Pool returns the underlying connection pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

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
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO attendees (name, email, dietary_restrictions, plus_one, arrival_time,
			departure_time, excited_about, payment_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		a.Name, a.Email, a.DietaryRestrictions, a.PlusOne, a.ArrivalTime,
		a.DepartureTime, a.ExcitedAbout, status, storage.StampCreated(a.CreatedAt)).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

func (s *Store) GetAttendee(ctx context.Context, id int64) (*storage.Attendee, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+attendeeColumns+` FROM attendees WHERE id = $1`, id)
	return scanAttendee(row)
}

func (s *Store) GetAttendeeByEmail(ctx context.Context, email string) (*storage.Attendee, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+attendeeColumns+` FROM attendees WHERE lower(email) = lower($1)`, email)
	return scanAttendee(row)
}

func (s *Store) ListAttendees(ctx context.Context) ([]storage.Attendee, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+attendeeColumns+` FROM attendees ORDER BY created_at DESC, id DESC`)
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
	tag, err := s.pool.Exec(ctx, `
		UPDATE attendees SET name = $1, email = $2, dietary_restrictions = $3, plus_one = $4,
			arrival_time = $5, departure_time = $6, excited_about = $7, payment_status = $8
		WHERE id = $9`,
		a.Name, a.Email, a.DietaryRestrictions, a.PlusOne, a.ArrivalTime,
		a.DepartureTime, a.ExcitedAbout, a.PaymentStatus, a.ID)
	if err != nil {
		return mapErr(err)
	}
	return requireAffected(tag)
}

func (s *Store) DeleteAttendee(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM attendees WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(tag)
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
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO activities (title, description, host_name, host_email, duration,
			equipment_needed, capacity, time_preference, activity_type, notes, status,
			scheduled_start, scheduled_end, location, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`,
		a.Title, a.Description, a.HostName, a.HostEmail, a.Duration,
		a.EquipmentNeeded, a.Capacity, a.TimePreference, a.ActivityType, a.Notes, status,
		a.ScheduledStart, a.ScheduledEnd, a.Location, storage.StampCreated(a.CreatedAt)).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

func (s *Store) GetActivity(ctx context.Context, id int64) (*storage.Activity, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id)
	return scanActivity(row)
}

func (s *Store) ListActivities(ctx context.Context, status string) ([]storage.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities`
	var args []any
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, args...)
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
	tag, err := s.pool.Exec(ctx, `
		UPDATE activities SET title = $1, description = $2, host_name = $3, host_email = $4,
			duration = $5, equipment_needed = $6, capacity = $7, time_preference = $8,
			activity_type = $9, notes = $10, status = $11, scheduled_start = $12,
			scheduled_end = $13, location = $14
		WHERE id = $15`,
		a.Title, a.Description, a.HostName, a.HostEmail,
		a.Duration, a.EquipmentNeeded, a.Capacity, a.TimePreference,
		a.ActivityType, a.Notes, a.Status, a.ScheduledStart,
		a.ScheduledEnd, a.Location, a.ID)
	if err != nil {
		return mapErr(err)
	}
	return requireAffected(tag)
}

func (s *Store) DeleteActivity(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(tag)
}

// ---------------------------------------------------------------------------
// Announcements
// ---------------------------------------------------------------------------

func (s *Store) InsertAnnouncement(ctx context.Context, a *storage.Announcement) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO announcements (message, active, created_at) VALUES ($1, $2, $3) RETURNING id`,
		a.Message, a.Active, storage.StampCreated(a.CreatedAt)).Scan(&id)
	return id, err
}

func (s *Store) GetAnnouncement(ctx context.Context, id int64) (*storage.Announcement, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, message, active, created_at FROM announcements WHERE id = $1`, id)
	return scanAnnouncement(row)
}

func (s *Store) ListAnnouncements(ctx context.Context, activeOnly bool) ([]storage.Announcement, error) {
	query := `SELECT id, message, active, created_at FROM announcements`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query)
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
	tag, err := s.pool.Exec(ctx, `UPDATE announcements SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	return requireAffected(tag)
}

func (s *Store) DeleteAnnouncement(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(tag)
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	return value, err
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value)
	return err
}

func (s *Store) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM settings`)
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
	row := s.pool.QueryRow(ctx,
		`SELECT address, attempts, last_attempt, locked_until FROM login_attempts WHERE address = $1`, address)
	return scanLoginAttempt(row)
}

func (s *Store) RecordLoginFailure(ctx context.Context, address string, at time.Time, lockAfter int, lockUntil time.Time) (*storage.LoginAttempt, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO login_attempts (address, attempts, last_attempt, locked_until)
		VALUES ($1, 1, $2, CASE WHEN 1 >= $3 THEN $4::timestamptz ELSE NULL END)
		ON CONFLICT (address) DO UPDATE SET
			attempts = login_attempts.attempts + 1,
			last_attempt = EXCLUDED.last_attempt,
			locked_until = CASE WHEN login_attempts.attempts + 1 >= $3 THEN $4::timestamptz ELSE NULL END
		RETURNING address, attempts, last_attempt, locked_until`,
		address, at.UTC().Truncate(time.Millisecond), lockAfter, lockUntil.UTC().Truncate(time.Millisecond))
	return scanLoginAttempt(row)
}

func (s *Store) DeleteLoginAttempt(ctx context.Context, address string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM login_attempts WHERE address = $1`, address)
	return err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func scanAttendee(row pgx.Row) (*storage.Attendee, error) {
	var a storage.Attendee
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.DietaryRestrictions, &a.PlusOne,
		&a.ArrivalTime, &a.DepartureTime, &a.ExcitedAbout, &a.PaymentStatus, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

func scanActivity(row pgx.Row) (*storage.Activity, error) {
	var a storage.Activity
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.HostName, &a.HostEmail, &a.Duration,
		&a.EquipmentNeeded, &a.Capacity, &a.TimePreference, &a.ActivityType, &a.Notes, &a.Status,
		&a.ScheduledStart, &a.ScheduledEnd, &a.Location, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

func scanAnnouncement(row pgx.Row) (*storage.Announcement, error) {
	var a storage.Announcement
	err := row.Scan(&a.ID, &a.Message, &a.Active, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

func scanLoginAttempt(row pgx.Row) (*storage.LoginAttempt, error) {
	var rec storage.LoginAttempt
	err := row.Scan(&rec.Address, &rec.Attempts, &rec.LastAttempt, &rec.LockedUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.LastAttempt = rec.LastAttempt.UTC()
	if rec.LockedUntil != nil {
		t := rec.LockedUntil.UTC()
		rec.LockedUntil = &t
	}
	return &rec, nil
}

func requireAffected(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func mapErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, storage.ErrDuplicate)
	}
	return err
}
