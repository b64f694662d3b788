package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{EnvAddr, EnvMode, EnvStorage, EnvDatabasePath, EnvTrustedProxies} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	assert.Equal(t, defaultAddr, c.Addr)
	assert.Equal(t, StorageSQLite, c.Storage)
	assert.Equal(t, defaultDatabasePath, c.DatabasePath)
	assert.False(t, c.Production())
	assert.Empty(t, c.TrustedProxies)
	require.NoError(t, c.Validate())
}

func TestFromEnv_Values(t *testing.T) {
	t.Setenv(EnvMode, "Production")
	t.Setenv(EnvStorage, "BBOLT")
	t.Setenv(EnvTrustedProxies, " 10.0.0.0/8, 192.0.2.1 ,")
	t.Setenv(EnvAllowedOrigins, "https://event.example.com")

	c := FromEnv()
	assert.True(t, c.Production())
	assert.Equal(t, StorageBBolt, c.Storage)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, c.TrustedProxies)
	assert.Equal(t, []string{"https://event.example.com"}, c.AllowedOrigins)

	prefixes, err := ParsePrefixes(c.TrustedProxies)
	require.NoError(t, err)
	require.Len(t, prefixes, 2)
	assert.Equal(t, 32, prefixes[1].Bits())
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SESSION_SECRET=from-file\nEVENTDESK_ADDR=:9999\n"), 0o600))

	t.Setenv(EnvSessionSecret, "")
	os.Unsetenv(EnvSessionSecret)
	t.Setenv(EnvAddr, ":7000")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", c.SessionSecret)
	assert.Equal(t, ":7000", c.Addr)
}

func TestLoad_MissingFileIgnored(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestValidate(t *testing.T) {
	c := &Config{Storage: StoragePostgres}
	assert.Error(t, c.Validate())

	c = &Config{Storage: "mongo"}
	assert.Error(t, c.Validate())

	c = &Config{Storage: StorageMemory, TLSCert: "cert.pem"}
	assert.Error(t, c.Validate())

	c = &Config{Storage: StorageMemory, TrustedProxies: []string{"not-an-ip"}}
	assert.Error(t, c.Validate())
}
