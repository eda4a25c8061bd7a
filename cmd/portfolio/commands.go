// cmd/portfolio/commands.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/chand1012/personal-site/internal/api"
	"github.com/chand1012/personal-site/internal/blog"
	"github.com/chand1012/personal-site/internal/cache"
	custom_errors "github.com/chand1012/personal-site/internal/errors"
	"github.com/chand1012/personal-site/internal/og"
	"github.com/chand1012/personal-site/internal/push"
	"github.com/chand1012/personal-site/internal/syncer"
)

const shutdownTimeout = 10 * time.Second

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and optionally refresh stats on an interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context())
		},
	}
}

func (c *cli) serve(ctx context.Context) error {
	if err := c.cfg.ValidateStore(); err != nil {
		return err
	}
	var closers cleanup
	defer closers.run()

	var pool *pgxpool.Pool
	if c.cfg.DBURL != "" {
		var err error
		if pool, err = c.openPostgres(ctx, &closers); err != nil {
			return err
		}
	}

	store, err := c.openStore(ctx, pool, &closers)
	if err != nil {
		return fmt.Errorf("failed to open stats store: %w", err)
	}

	renderer, err := og.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to load fonts: %w", err)
	}

	devto := c.blogClient()
	deps := api.Deps{
		Stats:        cache.NewFallback(store, c.logger),
		Store:        store,
		Feed:         blog.NewFeed(devto, c.cfg.DevToUsername, nil, c.logger),
		Images:       renderer,
		Username:     c.cfg.GithubUsername,
		BlogUsername: c.cfg.DevToUsername,
		SyncAPIKey:   c.cfg.SyncAPIKey,
	}
	if pool != nil && c.cfg.DevToUsername != "" {
		blogSyncer, err := blog.NewSyncer(devto, blog.NewPostgresArticleStore(pool), c.cfg.DevToUsername, nil, c.logger)
		if err != nil {
			return err
		}
		deps.BlogSync = blogSyncer
	}

	if c.cfg.SyncInterval > 0 && c.cfg.GithubToken != "" {
		statsSyncer, err := c.statsSyncer(store)
		if err != nil {
			return fmt.Errorf("failed to create syncer: %w", err)
		}
		go statsSyncer.Start(ctx)
	}

	srv := &http.Server{
		Addr:              c.cfg.HTTPAddr,
		Handler:           api.NewRouter(deps, c.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("HTTP server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	c.logger.Info("Shutdown signal received. Exiting.")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (c *cli) statsSyncer(sink syncer.Sink) (*syncer.Syncer, error) {
	gh, err := c.githubClient()
	if err != nil {
		return nil, err
	}
	return syncer.NewSyncer(gh, sink, c.logger, syncer.Config{
		Username:     c.cfg.GithubUsername,
		Orgs:         c.cfg.GithubOrgs,
		StarredLimit: c.cfg.StarredLimit,
		Interval:     c.cfg.SyncInterval,
	})
}

func (c *cli) syncStatsCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sync-stats",
		Short: "Fetch GitHub stats once and store or push them",
		Long: `Fetches the profile, repositories and starred repositories of GITHUB_USERNAME,
aggregates them and writes the record to the configured cache. When
SYNC_PUSH_URL is set the record is POSTed to that endpoint instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.ValidateSync(); err != nil {
				return err
			}
			ctx := cmd.Context()
			var closers cleanup
			defer closers.run()

			if dryRun {
				s, err := c.statsSyncer(nil)
				if err != nil {
					return err
				}
				stats, err := s.Collect(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			var sink syncer.Sink
			if c.cfg.SyncPushURL != "" {
				client, err := push.NewClient(c.cfg.SyncPushURL, c.cfg.SyncAPIKey, c.logger)
				if err != nil {
					return err
				}
				sink = client
			} else {
				if err := c.cfg.ValidateStore(); err != nil {
					return err
				}
				store, err := c.openStore(ctx, nil, &closers)
				if err != nil {
					return fmt.Errorf("failed to open stats store: %w", err)
				}
				sink = store
			}

			s, err := c.statsSyncer(sink)
			if err != nil {
				return err
			}
			_, err = s.SyncOnce(ctx)
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the aggregated stats instead of storing them")
	return cmd
}

func (c *cli) syncBlogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-blog",
		Short: "Mirror dev.to articles into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.DevToUsername == "" {
				return &custom_errors.ErrMissingConfig{Key: "DEV_TO_BLOG_USERNAME"}
			}
			if c.cfg.DBURL == "" {
				return &custom_errors.ErrMissingConfig{Key: "DB_URL"}
			}
			ctx := cmd.Context()
			var closers cleanup
			defer closers.run()

			pool, err := c.openPostgres(ctx, &closers)
			if err != nil {
				return err
			}
			s, err := blog.NewSyncer(c.blogClient(), blog.NewPostgresArticleStore(pool), c.cfg.DevToUsername, nil, c.logger)
			if err != nil {
				return err
			}
			count, err := s.Sync(ctx)
			if err != nil {
				return err
			}
			c.logger.Info("Blog sync finished", "count", count)
			return nil
		},
	}
}

func (c *cli) rateLimitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rate-limit",
		Short: "Show the GitHub API rate limit for the configured token",
		RunE: func(cmd *cobra.Command, args []string) error {
			gh, err := c.githubClient()
			if err != nil {
				return err
			}
			info, err := gh.RateLimit(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "limit=%d remaining=%d used=%d reset=%s\n",
				info.Limit, info.Remaining, info.Used, info.ResetTime().Format(time.RFC3339))
			return nil
		},
	}
}
