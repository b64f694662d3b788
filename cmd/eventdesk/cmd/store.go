package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/jmcleod/eventdesk/internal/config"
	"github.com/jmcleod/eventdesk/storage"
	bboltstorage "github.com/jmcleod/eventdesk/storage/bbolt"
	"github.com/jmcleod/eventdesk/storage/memory"
	"github.com/jmcleod/eventdesk/storage/postgres"
	"github.com/jmcleod/eventdesk/storage/sqlite"
)

// openStore opens the backend named by cfg.Storage. Every backend applies
// its schema and seeds the default settings on open.
func openStore(ctx context.Context, cfg *config.Config) (storage.Repository, error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		return sqlite.Open(ctx, cfg.DatabasePath)
	case config.StoragePostgres:
		return postgres.NewRepositoryFromDSN(ctx, cfg.DatabaseURL)
	case config.StorageBBolt:
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return bboltstorage.NewRepositoryFromFile(cfg.DatabasePath, &bbolt.Options{Timeout: time.Second})
	case config.StorageMemory:
		return memory.NewRepository(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

// storeLocation describes where data lives, for startup output.
func storeLocation(cfg *config.Config) string {
	switch cfg.Storage {
	case config.StoragePostgres:
		return "postgres"
	case config.StorageMemory:
		return "memory (not persisted)"
	default:
		return cfg.Storage + ": " + cfg.DatabasePath
	}
}
