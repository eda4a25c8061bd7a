package blog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	custom_errors "github.com/chand1012/personal-site/internal/errors"
	"github.com/chand1012/personal-site/internal/metrics"
	"github.com/chand1012/personal-site/internal/model"
)

// ArticleSource lists articles and fetches their bodies.
type ArticleSource interface {
	ListAllArticles(ctx context.Context, username string) ([]APIArticle, error)
	GetArticle(ctx context.Context, id int64) (*APIArticle, error)
}

// ArticleStore persists synced articles.
type ArticleStore interface {
	// EditedAt returns the stored edit time of an article, and false when the
	// article has not been stored.
	EditedAt(ctx context.Context, id int64) (time.Time, bool, error)
	Upsert(ctx context.Context, article model.Article) error
}

// Syncer mirrors a dev.to user's articles into an ArticleStore.
type Syncer struct {
	source   ArticleSource
	store    ArticleStore
	username string
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewSyncer creates a blog Syncer for username.
func NewSyncer(source ArticleSource, store ArticleStore, username string, clock clockwork.Clock, logger *slog.Logger) (*Syncer, error) {
	if username == "" {
		return nil, &custom_errors.ErrMissingConfig{Key: "DEV_TO_BLOG_USERNAME"}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Syncer{source: source, store: store, username: username, clock: clock, logger: logger}, nil
}

// Sync inserts new articles and refreshes ones edited since they were stored.
// It returns the number of articles listed upstream. A failed body fetch
// skips that article; store failures abort the run.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	logger := s.logger.With("username", s.username)
	articles, err := s.source.ListAllArticles(ctx, s.username)
	if err != nil {
		return 0, fmt.Errorf("fetch blog posts: %w", err)
	}
	logger.Info("Fetched blog posts", "count", len(articles))

	var inserted, updated, skipped int
	for _, a := range articles {
		storedEditedAt, exists, err := s.store.EditedAt(ctx, a.ID)
		if err != nil {
			return 0, fmt.Errorf("look up article %d: %w", a.ID, err)
		}

		op := "insert"
		if exists {
			if a.EditedAt == nil || !a.EditedAt.After(storedEditedAt) {
				continue
			}
			op = "update"
		}

		full, err := s.source.GetArticle(ctx, a.ID)
		if err != nil {
			logger.Error("Failed to fetch body for blog post", "id", a.ID, "error", err)
			skipped++
			continue
		}

		if err := s.store.Upsert(ctx, s.toArticle(a, full)); err != nil {
			return 0, fmt.Errorf("store article %d: %w", a.ID, err)
		}
		metrics.BlogArticlesSynced.WithLabelValues(op).Inc()
		if op == "insert" {
			inserted++
		} else {
			updated++
		}
	}

	logger.Info("Blog sync finished", "inserted", inserted, "updated", updated, "skipped", skipped)
	return len(articles), nil
}

func (s *Syncer) toArticle(a APIArticle, full *APIArticle) model.Article {
	editedAt := s.clock.Now()
	if a.EditedAt != nil {
		editedAt = *a.EditedAt
	}

	var content string
	if full.BodyMarkdown != nil {
		content = *full.BodyMarkdown
	}

	article := model.Article{
		ID:                 a.ID,
		Title:              a.Title,
		Description:        a.Description,
		CanonicalURL:       fmt.Sprintf("https://dev.to/%s/%s", s.username, a.Slug),
		PublishedAt:        a.PublishedTimestamp,
		EditedAt:           editedAt,
		ReadingTimeMinutes: a.ReadingTimeMinutes,
		Tags:               a.Tags,
		Content:            content,
		Author: model.ArticleAuthor{
			Name:            a.User.Name,
			Username:        a.User.Username,
			TwitterUsername: deref(a.User.TwitterUsername),
			GithubUsername:  deref(a.User.GithubUsername),
			UserID:          a.User.UserID,
			WebsiteURL:      deref(a.User.WebsiteURL),
			ProfileImage:    a.User.ProfileImage,
			ProfileImage90:  a.User.ProfileImage90,
		},
	}
	if article.PublishedAt.IsZero() {
		article.PublishedAt = a.PublishedAt
	}
	if a.Organization != nil {
		article.Organization = model.ArticleOrganization{
			Name:           a.Organization.Name,
			Username:       a.Organization.Username,
			ProfileImage:   a.Organization.ProfileImage,
			ProfileImage90: a.Organization.ProfileImage90,
		}
	}
	return article
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
