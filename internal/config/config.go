// Package config loads runtime settings from the process environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvAddr               = "EVENTDESK_ADDR"
	EnvMode               = "EVENTDESK_ENV"
	EnvStorage            = "EVENTDESK_STORAGE"
	EnvDatabasePath       = "DATABASE_PATH"
	EnvDatabaseURL        = "DATABASE_URL"
	EnvAdminPasswordHash  = "ADMIN_PASSWORD_HASH"
	EnvSessionSecret      = "SESSION_SECRET"
	EnvTrustedProxies     = "EVENTDESK_TRUSTED_PROXIES"
	EnvAllowedOrigins     = "EVENTDESK_ALLOWED_ORIGINS"
	EnvAuditWebhookURL    = "EVENTDESK_AUDIT_WEBHOOK_URL"
	EnvAuditWebhookHeader = "EVENTDESK_AUDIT_WEBHOOK_HEADER"
	EnvTLSCert            = "EVENTDESK_TLS_CERT"
	EnvTLSKey             = "EVENTDESK_TLS_KEY"
)

// Storage backends.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageBBolt    = "bbolt"
	StorageMemory   = "memory"
)

const (
	defaultAddr         = ":8080"
	defaultDatabasePath = "./data/eventdesk.db"
	modeProduction      = "production"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Addr               string
	Mode               string
	Storage            string
	DatabasePath       string
	DatabaseURL        string
	AdminPasswordHash  string
	SessionSecret      string
	TrustedProxies     []string
	AllowedOrigins     []string
	AuditWebhookURL    string
	AuditWebhookHeader string
	TLSCert            string
	TLSKey             string
}

// Load reads the given .env files (default ".env") into the environment,
// without overriding variables already set, and returns the resulting
// configuration. Missing files are ignored.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from the current environment.
func FromEnv() *Config {
	return &Config{
		Addr:               getEnv(EnvAddr, defaultAddr),
		Mode:               getEnv(EnvMode, "development"),
		Storage:            strings.ToLower(getEnv(EnvStorage, StorageSQLite)),
		DatabasePath:       getEnv(EnvDatabasePath, defaultDatabasePath),
		DatabaseURL:        os.Getenv(EnvDatabaseURL),
		AdminPasswordHash:  os.Getenv(EnvAdminPasswordHash),
		SessionSecret:      os.Getenv(EnvSessionSecret),
		TrustedProxies:     splitList(os.Getenv(EnvTrustedProxies)),
		AllowedOrigins:     splitList(os.Getenv(EnvAllowedOrigins)),
		AuditWebhookURL:    os.Getenv(EnvAuditWebhookURL),
		AuditWebhookHeader: os.Getenv(EnvAuditWebhookHeader),
		TLSCert:            os.Getenv(EnvTLSCert),
		TLSKey:             os.Getenv(EnvTLSKey),
	}
}

// Production reports whether the server runs in production mode, which
// marks session cookies Secure.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Mode, modeProduction)
}

// Validate checks settings that would prevent startup. Missing credentials
// are not startup errors; they surface per request.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageSQLite, StorageBBolt:
		if c.DatabasePath == "" {
			return fmt.Errorf("%s is required for %s storage", EnvDatabasePath, c.Storage)
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%s is required for postgres storage", EnvDatabaseURL)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage)
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return errors.New("TLS certificate and key must be set together")
	}
	if _, err := ParsePrefixes(c.TrustedProxies); err != nil {
		return err
	}
	return nil
}

// ParsePrefixes parses CIDR ranges or bare addresses into prefixes.
func ParsePrefixes(values []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, v := range values {
		if p, err := netip.ParsePrefix(v); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q", v)
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
