package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/chand1012/personal-site/internal/metrics"
	"github.com/chand1012/personal-site/internal/model"
)

const (
	backendMongo = "mongo"

	// StatsCollection holds one document per username.
	StatsCollection = "github_stats_cache"
)

// MongoStore keeps one document per username, keyed by a unique index.
type MongoStore struct {
	coll   *mongo.Collection
	ttl    time.Duration
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewMongoStore creates a store over the stats collection of db.
func NewMongoStore(db *mongo.Database, ttl time.Duration, clock clockwork.Clock, logger *slog.Logger) *MongoStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MongoStore{
		coll:   db.Collection(StatsCollection),
		ttl:    ttl,
		clock:  clock,
		logger: logger,
	}
}

// NewMongoClient connects to uri and pings the primary.
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the unique username index.
func (m *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create username index: %w", err)
	}
	return nil
}

func (m *MongoStore) Get(ctx context.Context, username string) (model.GitHubStats, bool) {
	var entry model.CacheEntry
	err := m.coll.FindOne(ctx, bson.D{{Key: "username", Value: username}}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		metrics.CacheMisses.WithLabelValues(backendMongo).Inc()
		return model.GitHubStats{}, false
	}
	if err != nil {
		m.logger.Error("Failed to read cached stats", "backend", backendMongo, "username", username, "error", err)
		metrics.CacheMisses.WithLabelValues(backendMongo).Inc()
		return model.GitHubStats{}, false
	}

	if entry.Expired(m.clock.Now()) {
		filter := bson.D{{Key: "username", Value: username}, {Key: "expires_at", Value: entry.ExpiresAt}}
		if _, err := m.coll.DeleteOne(ctx, filter); err != nil {
			m.logger.Warn("Failed to delete expired stats", "username", username, "error", err)
		}
		metrics.CacheMisses.WithLabelValues(backendMongo).Inc()
		return model.GitHubStats{}, false
	}

	stats, err := decode(entry.Stats)
	if err != nil {
		m.logger.Error("Failed to decode cached stats", "backend", backendMongo, "username", username, "error", err)
		metrics.CacheMisses.WithLabelValues(backendMongo).Inc()
		return model.GitHubStats{}, false
	}
	metrics.CacheHits.WithLabelValues(backendMongo).Inc()
	return stats, true
}

func (m *MongoStore) Set(ctx context.Context, username string, stats model.GitHubStats) error {
	payload, err := encode(stats)
	if err != nil {
		return err
	}
	entry := newEntry(username, payload, m.clock.Now(), m.ttl)

	_, err = m.coll.ReplaceOne(ctx,
		bson.D{{Key: "username", Value: username}},
		entry,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		metrics.CacheWriteErrors.WithLabelValues(backendMongo).Inc()
		return fmt.Errorf("upsert stats for %s: %w", username, err)
	}
	m.logger.Info("Cached stats", "backend", backendMongo, "username", username)
	return nil
}
