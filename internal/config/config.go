// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	custom_errors "github.com/chand1012/personal-site/internal/errors"
)

// Cache drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel string `mapstructure:"LOG_LEVEL"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`

	GithubToken    string        `mapstructure:"GITHUB_TOKEN"`
	GithubUsername string        `mapstructure:"GITHUB_USERNAME"`
	GithubOrgs     []string      `mapstructure:"GITHUB_ORGS"`
	GithubAPIURL   string        `mapstructure:"GITHUB_API_URL"`
	StarredLimit   int           `mapstructure:"STARRED_LIMIT"`
	SyncInterval   time.Duration `mapstructure:"SYNC_INTERVAL"`
	SyncPushURL    string        `mapstructure:"SYNC_PUSH_URL"`
	SyncAPIKey     string        `mapstructure:"GITHUB_SYNC_API_KEY"`

	CacheDriver    string        `mapstructure:"CACHE_DRIVER"`
	CacheTTL       time.Duration `mapstructure:"CACHE_TTL"`
	RedisURI       string        `mapstructure:"REDIS_URI"`
	DBURL          string        `mapstructure:"DB_URL"`
	MongoURI       string        `mapstructure:"MONGO_URI"`
	MongoDatabase  string        `mapstructure:"MONGO_DATABASE"`
	MigrationsPath string        `mapstructure:"MIGRATIONS_PATH"`

	DevToUsername string `mapstructure:"DEV_TO_BLOG_USERNAME"`
	DevToAPIKey   string `mapstructure:"DEV_API_KEY"`
	DevToAPIURL   string `mapstructure:"DEVTO_API_URL"`
}

// defaults lists every key; viper only unmarshals keys it knows about.
var defaults = map[string]any{
	"LOG_LEVEL":            "info",
	"HTTP_ADDR":            ":8080",
	"GITHUB_TOKEN":         "",
	"GITHUB_USERNAME":      "",
	"GITHUB_ORGS":          "",
	"GITHUB_API_URL":       "",
	"STARRED_LIMIT":        3,
	"SYNC_INTERVAL":        "0s",
	"SYNC_PUSH_URL":        "",
	"GITHUB_SYNC_API_KEY":  "",
	"CACHE_DRIVER":         DriverRedis,
	"CACHE_TTL":            "1h",
	"REDIS_URI":            "redis://localhost:6379/0",
	"DB_URL":               "",
	"MONGO_URI":            "",
	"MONGO_DATABASE":       "portfolio",
	"MIGRATIONS_PATH":      "file://migrations",
	"DEV_TO_BLOG_USERNAME": "",
	"DEV_API_KEY":          "",
	"DEVTO_API_URL":        "https://dev.to/api",
}

// LoadConfig reads configuration from a .env file and/or environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.GithubOrgs = cleanList(cfg.GithubOrgs)
	cfg.CacheDriver = strings.ToLower(strings.TrimSpace(cfg.CacheDriver))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.StarredLimit < 1 || c.StarredLimit > 100 {
		return errors.New("STARRED_LIMIT must be between 1 and 100")
	}
	return nil
}

// ValidateStore checks the keys the selected stats store needs. Only commands
// that open the store call it.
func (c *Config) ValidateStore() error {
	switch c.CacheDriver {
	case DriverMemory, DriverRedis:
	case DriverPostgres:
		if c.DBURL == "" {
			return &custom_errors.ErrMissingConfig{Key: "DB_URL"}
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return &custom_errors.ErrMissingConfig{Key: "MONGO_URI"}
		}
	default:
		return fmt.Errorf("CACHE_DRIVER must be one of memory, redis, postgres, mongo; got %q", c.CacheDriver)
	}
	if c.CacheTTL < 0 {
		return errors.New("CACHE_TTL must not be negative")
	}
	return nil
}

// ValidateSync checks the keys a stats sync cannot run without.
func (c *Config) ValidateSync() error {
	if c.GithubToken == "" {
		return &custom_errors.ErrMissingConfig{Key: "GITHUB_TOKEN"}
	}
	if c.GithubUsername == "" {
		return &custom_errors.ErrMissingConfig{Key: "GITHUB_USERNAME"}
	}
	if c.SyncPushURL != "" && c.SyncAPIKey == "" {
		return &custom_errors.ErrMissingConfig{Key: "GITHUB_SYNC_API_KEY"}
	}
	return nil
}

// cleanList trims entries and drops empty ones, so "a, b,,c" yields [a b c].
func cleanList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
