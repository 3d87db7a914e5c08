package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sales-api/internal/config"
)

func TestLoadRequiresCoreSettings(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"DATABASE_URL": "",
		"REDIS_URL":    "redis://localhost:6379",
		"JWT_SECRET":   "secret",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"DATABASE_URL":       "postgres://localhost:5432/sales",
		"REDIS_URL":          "redis://localhost:6379",
		"JWT_SECRET":         "secret",
		"PORT":               "",
		"ACCESS_TOKEN_TTL":   "",
		"CATALOG_CACHE_TTL":  "",
		"REQUEST_RATE_LIMIT": "",
		"MIGRATE_ON_START":   "",
	})
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 5*time.Minute, cfg.CatalogCacheTTL)
	require.Equal(t, "120-M", cfg.RequestRateLimit)
	require.True(t, cfg.MigrateOnStart)
}

func TestLoadParsesOverrides(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"DATABASE_URL":         "postgres://localhost:5432/sales",
		"REDIS_URL":            "redis://localhost:6379",
		"JWT_SECRET":           "secret",
		"PORT":                 "9090",
		"CORS_ALLOWED_ORIGINS": "https://a.example, https://b.example",
		"ACCESS_TOKEN_TTL":     "1h",
		"MIGRATE_ON_START":     "false",
	})
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	require.Equal(t, time.Hour, cfg.AccessTokenTTL)
	require.False(t, cfg.MigrateOnStart)
}
