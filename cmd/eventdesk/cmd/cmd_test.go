package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/eventdesk/auth"
	"github.com/jmcleod/eventdesk/internal/config"
	"github.com/jmcleod/eventdesk/storage"
)

var envLine = regexp.MustCompile(`(?m)^([A-Z_]+)=(\S+)$`)

func envValues(out string) map[string]string {
	values := map[string]string{}
	for _, m := range envLine.FindAllStringSubmatch(out, -1) {
		values[m[1]] = m[2]
	}
	return values
}

func TestWritePasswordHash(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, writePasswordHash(&out, &errOut, "a long enough password"))
	assert.Empty(t, errOut.String())

	hash := envValues(out.String())["ADMIN_PASSWORD_HASH"]
	require.NotEmpty(t, hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$12$"), hash)
	assert.True(t, auth.VerifyPassword("a long enough password", hash))
}

func TestWritePasswordHash_WarnsOnShortPassword(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, writePasswordHash(&out, &errOut, "short"))
	assert.Contains(t, errOut.String(), "at least 8 characters")
	assert.Contains(t, out.String(), "ADMIN_PASSWORD_HASH=")
}

func TestWritePasswordHash_RequiresPassword(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Error(t, writePasswordHash(&out, &errOut, ""))
	assert.Empty(t, out.String())
}

func TestWriteSecrets(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeSecrets(&out, "hunter22"))

	values := envValues(out.String())
	assert.True(t, strings.HasPrefix(values["ADMIN_PASSWORD_HASH"], "$2a$10$"))
	assert.True(t, auth.VerifyPassword("hunter22", values["ADMIN_PASSWORD_HASH"]))
	assert.Regexp(t, `^[0-9a-f]{128}$`, values["SESSION_SECRET"])

	var again bytes.Buffer
	require.NoError(t, writeSecrets(&again, "hunter22"))
	assert.NotEqual(t, values["SESSION_SECRET"], envValues(again.String())["SESSION_SECRET"])
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	for _, cfg := range []*config.Config{
		{Storage: config.StorageMemory},
		{Storage: config.StorageSQLite, DatabasePath: filepath.Join(dir, "sqlite", "event.db")},
		{Storage: config.StorageBBolt, DatabasePath: filepath.Join(dir, "bolt", "event.db")},
	} {
		t.Run(cfg.Storage, func(t *testing.T) {
			repo, err := openStore(context.Background(), cfg)
			require.NoError(t, err)
			defer repo.Close()

			open, err := repo.GetSetting(context.Background(), storage.SettingRSVPOpen)
			require.NoError(t, err)
			assert.Equal(t, "true", open)
		})
	}

	_, err := openStore(context.Background(), &config.Config{Storage: "mongo"})
	assert.Error(t, err)
}

func TestPrintSettings(t *testing.T) {
	repo, err := openStore(context.Background(), &config.Config{Storage: config.StorageMemory})
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.SetSetting(context.Background(), storage.SettingLocation, "Lakeside"))

	var out bytes.Buffer
	initDBCmd.SetContext(context.Background())
	require.NoError(t, printSettings(initDBCmd, &out, repo))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		"Current settings:",
		"  - activity_submissions_open: true",
		"  - location: Lakeside",
		"  - rsvp_open: true",
	}, lines)
}

func TestStoreLocation(t *testing.T) {
	assert.Equal(t, "postgres", storeLocation(&config.Config{Storage: config.StoragePostgres, DatabaseURL: "postgres://secret@db"}))
	assert.Equal(t, "sqlite: ./data/eventdesk.db", storeLocation(&config.Config{Storage: config.StorageSQLite, DatabasePath: "./data/eventdesk.db"}))
}
