package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmcleod/eventdesk/storage"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the required tables and indexes if they do not exist
// and seeds any missing default settings. It is safe to call on every
// startup (all statements use IF NOT EXISTS / ON CONFLICT DO NOTHING).
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return err
	}
	for k, v := range storage.DefaultSettings {
		_, err := pool.Exec(ctx,
			`INSERT INTO settings (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`, k, v)
		if err != nil {
			return fmt.Errorf("seeding setting %s: %w", k, err)
		}
	}
	return nil
}
