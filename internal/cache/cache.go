// Package cache stores the most recent GitHubStats record per username.
//
// Every backend honours the same contract: Get reports a miss when nothing
// was stored, when the record has outlived the TTL (deleting it as a side
// effect) or when the store cannot be read; Set replaces any prior record for
// the username and returns store errors to the caller. A zero TTL disables
// expiry.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chand1012/personal-site/internal/model"
)

// DefaultTTL is the freshness window applied when none is configured.
const DefaultTTL = time.Hour

// keyPrefix namespaces stats records in key-value stores.
const keyPrefix = "github:stats:"

// Store is the capability every cache backend provides.
type Store interface {
	Get(ctx context.Context, username string) (model.GitHubStats, bool)
	Set(ctx context.Context, username string, stats model.GitHubStats) error
}

func encode(stats model.GitHubStats) ([]byte, error) {
	data, err := json.Marshal(stats)
	if err != nil {
		return nil, fmt.Errorf("marshal stats: %w", err)
	}
	return data, nil
}

func decode(data []byte) (model.GitHubStats, error) {
	var stats model.GitHubStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return model.GitHubStats{}, fmt.Errorf("unmarshal stats: %w", err)
	}
	return stats, nil
}

// newEntry stamps a payload with cachedAt/expiresAt measured from now.
func newEntry(username string, payload []byte, now time.Time, ttl time.Duration) model.CacheEntry {
	e := model.CacheEntry{
		Username: username,
		Stats:    payload,
		CachedAt: now.Unix(),
	}
	if ttl > 0 {
		e.ExpiresAt = now.Add(ttl).Unix()
	}
	return e
}
