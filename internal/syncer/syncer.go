// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	custom_errors "github.com/chand1012/personal-site/internal/errors"
	"github.com/chand1012/personal-site/internal/metrics"
	"github.com/chand1012/personal-site/internal/model"
	"github.com/chand1012/personal-site/internal/stats"
)

const (
	// Number of organizations fetched in parallel
	orgConcurrency = 4

	// DefaultStarredLimit is how many recently starred repos are kept.
	DefaultStarredLimit = 3
)

// GitHubAPI is the subset of the GitHub client the syncer needs.
type GitHubAPI interface {
	GetUser(ctx context.Context, username string) (*model.Profile, error)
	ListUserRepos(ctx context.Context, username string) ([]model.Repository, error)
	ListOrgRepos(ctx context.Context, org string) ([]model.Repository, error)
	ListStarred(ctx context.Context, username string, limit int) ([]model.StarredRepo, error)
}

// Sink persists a finished stats record. cache.Store and push.Client both
// satisfy it.
type Sink interface {
	Set(ctx context.Context, username string, stats model.GitHubStats) error
}

// Config selects what a sync run collects.
type Config struct {
	Username     string
	Orgs         []string
	StarredLimit int
	Interval     time.Duration
}

// Syncer orchestrates fetching, aggregating and storing GitHub stats.
type Syncer struct {
	gh     GitHubAPI
	sink   Sink
	logger *slog.Logger
	clock  clockwork.Clock
	cfg    Config
}

// Option customises a Syncer.
type Option func(*Syncer)

// WithClock replaces the clock driving the periodic loop.
func WithClock(c clockwork.Clock) Option {
	return func(s *Syncer) { s.clock = c }
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(gh GitHubAPI, sink Sink, logger *slog.Logger, cfg Config, opts ...Option) (*Syncer, error) {
	if cfg.Username == "" {
		return nil, &custom_errors.ErrMissingConfig{Key: "GITHUB_USERNAME"}
	}
	if cfg.StarredLimit <= 0 {
		cfg.StarredLimit = DefaultStarredLimit
	}

	s := &Syncer{
		gh:     gh,
		sink:   sink,
		logger: logger,
		clock:  clockwork.NewRealClock(),
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start syncs immediately and then once per interval until ctx is done.
// Failed runs are logged and retried on the next tick.
func (s *Syncer) Start(ctx context.Context) {
	s.logger.Info("Starting stats syncer", "interval", s.cfg.Interval.String(), "username", s.cfg.Username)
	ticker := s.clock.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.runLogged(ctx) // Initial sync

	for {
		select {
		case <-ticker.Chan():
			s.runLogged(ctx)
		case <-ctx.Done():
			s.logger.Info("Stats syncer shutting down", "reason", ctx.Err())
			return
		}
	}
}

func (s *Syncer) runLogged(ctx context.Context) {
	if _, err := s.SyncOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("Stats sync failed", "error", err)
	}
}

// SyncOnce performs one full refresh and persists the result through the sink.
func (s *Syncer) SyncOnce(ctx context.Context) (model.GitHubStats, error) {
	logger := s.logger.With("run_id", uuid.NewString(), "username", s.cfg.Username)
	start := s.clock.Now()
	logger.Info("Starting stats sync", "orgs", s.cfg.Orgs)

	record, err := s.collect(ctx, logger)
	if err == nil {
		err = record.Validate()
	}
	if err == nil {
		if err = s.sink.Set(ctx, s.cfg.Username, record); err != nil {
			err = fmt.Errorf("store stats: %w", err)
		}
	}

	metrics.SyncDuration.Observe(s.clock.Since(start).Seconds())
	if err != nil {
		metrics.SyncRuns.WithLabelValues("error").Inc()
		return model.GitHubStats{}, err
	}
	metrics.SyncRuns.WithLabelValues("success").Inc()
	logger.Info("Stats sync finished",
		"total_stars", record.TotalStars,
		"total_repos", record.TotalRepos,
		"total_forks", record.TotalForks,
		"orgs_with_stars", len(record.StarsByOrg),
		"starred", len(record.StarredRepos),
	)
	return record, nil
}

// Collect fetches and aggregates stats without persisting them.
func (s *Syncer) Collect(ctx context.Context) (model.GitHubStats, error) {
	return s.collect(ctx, s.logger.With("username", s.cfg.Username))
}

func (s *Syncer) collect(ctx context.Context, logger *slog.Logger) (model.GitHubStats, error) {
	profile, err := s.gh.GetUser(ctx, s.cfg.Username)
	if errors.Is(err, custom_errors.ErrNotFound) {
		return model.GitHubStats{}, fmt.Errorf("%w: %s", custom_errors.ErrUserNotFound, s.cfg.Username)
	}
	if err != nil {
		return model.GitHubStats{}, fmt.Errorf("fetch profile: %w", err)
	}
	logger.Debug("Fetched profile", "followers", profile.Followers, "following", profile.Following)

	repos, err := s.gh.ListUserRepos(ctx, s.cfg.Username)
	if errors.Is(err, custom_errors.ErrNotFound) {
		logger.Warn("User repositories not found, continuing without them")
		repos, err = nil, nil
	}
	if err != nil {
		return model.GitHubStats{}, fmt.Errorf("fetch user repos: %w", err)
	}
	logger.Debug("Fetched user repos", "count", len(repos))

	orgRepos, err := s.fetchOrgRepos(ctx, logger)
	if err != nil {
		return model.GitHubStats{}, err
	}
	repos = append(repos, orgRepos...)

	starred, err := s.gh.ListStarred(ctx, s.cfg.Username, s.cfg.StarredLimit)
	if err != nil {
		if ctx.Err() != nil {
			return model.GitHubStats{}, ctx.Err()
		}
		logger.Warn("Failed to fetch starred repos, continuing without them", "error", err)
		starred = nil
	}

	return stats.Build(s.cfg.Username, *profile, repos, starred), nil
}

// fetchOrgRepos fetches every configured organization concurrently and
// concatenates the results in configured order. Missing orgs are skipped.
func (s *Syncer) fetchOrgRepos(ctx context.Context, logger *slog.Logger) ([]model.Repository, error) {
	if len(s.cfg.Orgs) == 0 {
		return nil, nil
	}

	results := make([][]model.Repository, len(s.cfg.Orgs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(orgConcurrency)

	for i, org := range s.cfg.Orgs {
		g.Go(func() error {
			repos, err := s.gh.ListOrgRepos(gctx, org)
			if errors.Is(err, custom_errors.ErrNotFound) {
				logger.Warn("Organization not found, skipping", "org", org)
				return nil
			}
			if err != nil {
				return fmt.Errorf("fetch repos for org %s: %w", org, err)
			}
			logger.Debug("Fetched org repos", "org", org, "count", len(repos))
			results[i] = repos
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.Repository
	for _, repos := range results {
		all = append(all, repos...)
	}
	return all, nil
}
