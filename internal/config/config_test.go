package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	custom_errors "github.com/chand1012/personal-site/internal/errors"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, DriverRedis, cfg.CacheDriver)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 3, cfg.StarredLimit)
	assert.Equal(t, time.Duration(0), cfg.SyncInterval)
	assert.Empty(t, cfg.GithubOrgs)
	assert.Equal(t, "file://migrations", cfg.MigrationsPath)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GITHUB_TOKEN", "ghp_x")
	t.Setenv("GITHUB_USERNAME", "octo")
	t.Setenv("GITHUB_ORGS", " acme, ,beta ")
	t.Setenv("CACHE_DRIVER", "Postgres")
	t.Setenv("DB_URL", "postgres://localhost/db")
	t.Setenv("CACHE_TTL", "0")
	t.Setenv("SYNC_INTERVAL", "30m")
	t.Setenv("STARRED_LIMIT", "5")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "beta"}, cfg.GithubOrgs)
	assert.Equal(t, DriverPostgres, cfg.CacheDriver)
	assert.Equal(t, time.Duration(0), cfg.CacheTTL)
	assert.Equal(t, 30*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 5, cfg.StarredLimit)
	assert.NoError(t, cfg.ValidateSync())
}

func TestLoadConfig_Validation(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("store settings are not checked at load", func(t *testing.T) {
		t.Setenv("CACHE_DRIVER", "postgres")
		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, DriverPostgres, cfg.CacheDriver)
	})

	t.Run("starred limit range", func(t *testing.T) {
		t.Setenv("STARRED_LIMIT", "0")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "STARRED_LIMIT")
	})
}

func TestConfig_ValidateSync(t *testing.T) {
	var missing *custom_errors.ErrMissingConfig

	err := (&Config{GithubUsername: "octo"}).ValidateSync()
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "GITHUB_TOKEN", missing.Key)

	err = (&Config{GithubToken: "t"}).ValidateSync()
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "GITHUB_USERNAME", missing.Key)

	err = (&Config{GithubToken: "t", GithubUsername: "octo", SyncPushURL: "http://x"}).ValidateSync()
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "GITHUB_SYNC_API_KEY", missing.Key)
}

func TestConfig_ValidateStore(t *testing.T) {
	var missing *custom_errors.ErrMissingConfig

	assert.NoError(t, (&Config{CacheDriver: DriverMemory}).ValidateStore())
	assert.NoError(t, (&Config{CacheDriver: DriverRedis, CacheTTL: time.Hour}).ValidateStore())

	err := (&Config{CacheDriver: DriverPostgres}).ValidateStore()
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "DB_URL", missing.Key)

	err = (&Config{CacheDriver: DriverMongo}).ValidateStore()
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "MONGO_URI", missing.Key)

	assert.ErrorContains(t, (&Config{CacheDriver: "sqlite"}).ValidateStore(), "CACHE_DRIVER")
	assert.ErrorContains(t, (&Config{CacheDriver: DriverMemory, CacheTTL: -time.Second}).ValidateStore(), "CACHE_TTL")
}
