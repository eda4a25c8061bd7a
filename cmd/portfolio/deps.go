// cmd/portfolio/deps.go
package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chand1012/personal-site/internal/blog"
	"github.com/chand1012/personal-site/internal/cache"
	"github.com/chand1012/personal-site/internal/config"
	"github.com/chand1012/personal-site/internal/database"
	"github.com/chand1012/personal-site/internal/github"
)

// cleanup runs deferred closers in reverse order.
type cleanup []func()

func (c *cleanup) add(f func()) { *c = append(*c, f) }

func (c cleanup) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// openPostgres migrates the schema and returns a verified pool.
func (c *cli) openPostgres(ctx context.Context, closers *cleanup) (*pgxpool.Pool, error) {
	if err := database.Migrate(c.cfg.MigrationsPath, c.cfg.DBURL, c.logger); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	pool, err := database.Connect(ctx, c.cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	closers.add(pool.Close)
	c.logger.Info("Database connection established")
	return pool, nil
}

// openStore builds the stats store selected by CACHE_DRIVER. pool is reused
// for the postgres driver when already open.
func (c *cli) openStore(ctx context.Context, pool *pgxpool.Pool, closers *cleanup) (cache.Store, error) {
	ttl := c.cfg.CacheTTL
	switch c.cfg.CacheDriver {
	case config.DriverMemory:
		return cache.NewMemoryStore(ttl, nil, c.logger), nil

	case config.DriverRedis:
		client, err := cache.NewRedisClient(ctx, c.cfg.RedisURI)
		if err != nil {
			return nil, err
		}
		closers.add(func() { _ = client.Close() })
		return cache.NewRedisStore(client, ttl, c.logger), nil

	case config.DriverPostgres:
		if pool == nil {
			var err error
			if pool, err = c.openPostgres(ctx, closers); err != nil {
				return nil, err
			}
		}
		return cache.NewPostgresStore(pool, ttl, nil, c.logger), nil

	case config.DriverMongo:
		client, err := cache.NewMongoClient(ctx, c.cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		closers.add(func() { _ = client.Disconnect(context.Background()) })
		store := cache.NewMongoStore(client.Database(c.cfg.MongoDatabase), ttl, nil, c.logger)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unsupported cache driver %q", c.cfg.CacheDriver)
}

func (c *cli) githubClient() (*github.Client, error) {
	var opts []github.Option
	if c.cfg.GithubAPIURL != "" {
		opts = append(opts, github.WithBaseURL(c.cfg.GithubAPIURL))
	}
	return github.NewClient(c.cfg.GithubToken, c.logger, opts...)
}

func (c *cli) blogClient() *blog.Client {
	return blog.NewClient(c.cfg.DevToAPIKey, c.logger, blog.WithBaseURL(c.cfg.DevToAPIURL))
}
