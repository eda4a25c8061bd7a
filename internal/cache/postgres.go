package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"

	"github.com/chand1012/personal-site/internal/database"
	"github.com/chand1012/personal-site/internal/metrics"
	"github.com/chand1012/personal-site/internal/model"
)

const backendPostgres = "postgres"

const (
	selectStatsSQL = `SELECT stats, cached_at, expires_at FROM github_stats_cache WHERE username = $1`

	deleteExpiredSQL = `DELETE FROM github_stats_cache WHERE username = $1 AND expires_at = $2`

	upsertStatsSQL = `
		INSERT INTO github_stats_cache (username, stats, cached_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO UPDATE SET
			stats = EXCLUDED.stats,
			cached_at = EXCLUDED.cached_at,
			expires_at = EXCLUDED.expires_at`
)

// PostgresStore keeps one row per username in github_stats_cache.
type PostgresStore struct {
	db     database.DBTX
	ttl    time.Duration
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewPostgresStore creates a store over db. The table is created by the
// migrations under migrations/.
func NewPostgresStore(db database.DBTX, ttl time.Duration, clock clockwork.Clock, logger *slog.Logger) *PostgresStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PostgresStore{db: db, ttl: ttl, clock: clock, logger: logger}
}

func (p *PostgresStore) Get(ctx context.Context, username string) (model.GitHubStats, bool) {
	var entry model.CacheEntry
	err := p.db.QueryRow(ctx, selectStatsSQL, username).Scan(&entry.Stats, &entry.CachedAt, &entry.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.CacheMisses.WithLabelValues(backendPostgres).Inc()
		return model.GitHubStats{}, false
	}
	if err != nil {
		p.logger.Error("Failed to read cached stats", "backend", backendPostgres, "username", username, "error", err)
		metrics.CacheMisses.WithLabelValues(backendPostgres).Inc()
		return model.GitHubStats{}, false
	}

	if entry.Expired(p.clock.Now()) {
		// Only the stale row is removed; a concurrent Set carries a new expires_at.
		if _, err := p.db.Exec(ctx, deleteExpiredSQL, username, entry.ExpiresAt); err != nil {
			p.logger.Warn("Failed to delete expired stats", "username", username, "error", err)
		}
		metrics.CacheMisses.WithLabelValues(backendPostgres).Inc()
		return model.GitHubStats{}, false
	}

	stats, err := decode(entry.Stats)
	if err != nil {
		p.logger.Error("Failed to decode cached stats", "backend", backendPostgres, "username", username, "error", err)
		metrics.CacheMisses.WithLabelValues(backendPostgres).Inc()
		return model.GitHubStats{}, false
	}
	metrics.CacheHits.WithLabelValues(backendPostgres).Inc()
	return stats, true
}

func (p *PostgresStore) Set(ctx context.Context, username string, stats model.GitHubStats) error {
	payload, err := encode(stats)
	if err != nil {
		return err
	}
	entry := newEntry(username, payload, p.clock.Now(), p.ttl)

	if _, err := p.db.Exec(ctx, upsertStatsSQL, entry.Username, entry.Stats, entry.CachedAt, entry.ExpiresAt); err != nil {
		metrics.CacheWriteErrors.WithLabelValues(backendPostgres).Inc()
		return fmt.Errorf("upsert stats for %s: %w", username, err)
	}
	p.logger.Info("Cached stats", "backend", backendPostgres, "username", username)
	return nil
}
