package cache

import (
	"context"
	"log/slog"

	"github.com/chand1012/personal-site/internal/metrics"
	"github.com/chand1012/personal-site/internal/model"
)

// Fallback is the read boundary for stats consumers. It never fails: when the
// store has nothing usable the mock record is returned instead.
type Fallback struct {
	store    Store
	defaults func() model.GitHubStats
	logger   *slog.Logger
}

// NewFallback wraps store. A nil store always yields the mock record.
func NewFallback(store Store, logger *slog.Logger) *Fallback {
	return &Fallback{store: store, defaults: model.MockGitHubStats, logger: logger}
}

// Stats returns the cached record for username, or the mock record. The
// boolean is true when the record came from the cache.
func (f *Fallback) Stats(ctx context.Context, username string) (model.GitHubStats, bool) {
	if f.store != nil {
		if stats, ok := f.store.Get(ctx, username); ok {
			return stats, true
		}
	}
	f.logger.Debug("Serving mock stats", "username", username)
	metrics.FallbackServed.Inc()
	return f.defaults(), false
}
