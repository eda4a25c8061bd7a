package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chand1012/personal-site/internal/metrics"
	"github.com/chand1012/personal-site/internal/model"
)

const backendRedis = "redis"

// RedisStore keeps one JSON value per username under github:stats:<username>.
// Expiry is delegated to Redis, which drops the key once the TTL passes.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, logger: logger}
}

// NewRedisClient parses a redis:// URI and checks the server is reachable.
func NewRedisClient(ctx context.Context, uri string) (*redis.Client, error) {
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri: %w", err)
	}
	opts.MaxRetries = 3
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (r *RedisStore) Get(ctx context.Context, username string) (model.GitHubStats, bool) {
	data, err := r.client.Get(ctx, keyPrefix+username).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMisses.WithLabelValues(backendRedis).Inc()
		return model.GitHubStats{}, false
	}
	if err != nil {
		r.logger.Error("Failed to read cached stats", "backend", backendRedis, "username", username, "error", err)
		metrics.CacheMisses.WithLabelValues(backendRedis).Inc()
		return model.GitHubStats{}, false
	}

	stats, err := decode(data)
	if err != nil {
		r.logger.Error("Failed to decode cached stats", "backend", backendRedis, "username", username, "error", err)
		metrics.CacheMisses.WithLabelValues(backendRedis).Inc()
		return model.GitHubStats{}, false
	}
	metrics.CacheHits.WithLabelValues(backendRedis).Inc()
	return stats, true
}

func (r *RedisStore) Set(ctx context.Context, username string, stats model.GitHubStats) error {
	payload, err := encode(stats)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, keyPrefix+username, payload, r.ttl).Err(); err != nil {
		metrics.CacheWriteErrors.WithLabelValues(backendRedis).Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	r.logger.Info("Cached stats", "backend", backendRedis, "username", username)
	return nil
}

// Ping checks the connection, for readiness probes.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
