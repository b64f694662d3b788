package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmcleod/eventdesk/storage"
)

type migration struct {
	name string
	up   string
}

var migrations = []migration{
	{
		name: "001_create_attendees",
		up: `
			CREATE TABLE attendees (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				email TEXT NOT NULL UNIQUE COLLATE NOCASE,
				dietary_restrictions TEXT NOT NULL DEFAULT '',
				plus_one INTEGER NOT NULL DEFAULT 0,
				arrival_time TEXT NOT NULL DEFAULT '',
				departure_time TEXT NOT NULL DEFAULT '',
				excited_about TEXT NOT NULL DEFAULT '',
				payment_status TEXT NOT NULL DEFAULT 'pending',
				created_at INTEGER NOT NULL
			);
			CREATE INDEX idx_attendees_created ON attendees(created_at);
		`,
	},
	{
		name: "002_create_activities",
		up: `
			CREATE TABLE activities (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				host_name TEXT NOT NULL,
				host_email TEXT NOT NULL DEFAULT '',
				duration INTEGER NOT NULL DEFAULT 0,
				equipment_needed TEXT NOT NULL DEFAULT '',
				capacity INTEGER,
				time_preference TEXT NOT NULL DEFAULT '',
				activity_type TEXT NOT NULL DEFAULT '',
				notes TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'pending',
				scheduled_start TEXT NOT NULL DEFAULT '',
				scheduled_end TEXT NOT NULL DEFAULT '',
				location TEXT NOT NULL DEFAULT '',
				created_at INTEGER NOT NULL
			);
			CREATE INDEX idx_activities_status ON activities(status);
		`,
	},
	{
		name: "003_create_announcements",
		up: `
			CREATE TABLE announcements (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				message TEXT NOT NULL,
				active INTEGER NOT NULL DEFAULT 1,
				created_at INTEGER NOT NULL
			);
		`,
	},
	{
		name: "004_create_settings",
		up: `
			CREATE TABLE settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at INTEGER NOT NULL
			);
		`,
	},
	{
		name: "005_create_login_attempts",
		up: `
			CREATE TABLE login_attempts (
				address TEXT PRIMARY KEY,
				attempts INTEGER NOT NULL DEFAULT 0,
				last_attempt INTEGER NOT NULL,
				locked_until INTEGER
			);
		`,
	},
}

// Migrate applies any migrations not yet recorded and seeds default settings.
// It is safe to call on every startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if err := runMigration(ctx, db, m); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}
	}
	return seedDefaults(ctx, db)
}

func runMigration(ctx context.Context, db *sql.DB, m migration) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations WHERE name = ?", m.name).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, m.up); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO migrations (name) VALUES (?)", m.name); err != nil {
		return err
	}
	return tx.Commit()
}

func seedDefaults(ctx context.Context, db *sql.DB) error {
	for k, v := range storage.DefaultSettings {
		_, err := db.ExecContext(ctx,
			`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO NOTHING`,
			k, v, nowMillis())
		if err != nil {
			return fmt.Errorf("seeding setting %s: %w", k, err)
		}
	}
	return nil
}
