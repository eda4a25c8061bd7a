package blog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/chand1012/personal-site/internal/model"
)

// FeedTTL is how long a fetched list of posts is reused.
const FeedTTL = time.Hour

// ArticleLister lists one page of a user's articles.
type ArticleLister interface {
	ListArticles(ctx context.Context, username string, perPage, page int) ([]APIArticle, error)
}

type feedEntry struct {
	posts     []model.BlogPost
	fetchedAt time.Time
}

// Feed serves the latest public posts of one dev.to user. Results are
// memoised per requested count; upstream failures yield an empty list.
type Feed struct {
	lister   ArticleLister
	username string
	ttl      time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[int]feedEntry
}

// NewFeed creates a Feed for username.
func NewFeed(lister ArticleLister, username string, clock clockwork.Clock, logger *slog.Logger) *Feed {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Feed{
		lister:   lister,
		username: username,
		ttl:      FeedTTL,
		clock:    clock,
		logger:   logger,
		entries:  make(map[int]feedEntry),
	}
}

// Latest returns up to n of the most recent posts.
func (f *Feed) Latest(ctx context.Context, n int) []model.BlogPost {
	if n <= 0 || f.username == "" {
		return []model.BlogPost{}
	}

	f.mu.Lock()
	entry, ok := f.entries[n]
	f.mu.Unlock()
	if ok && f.clock.Since(entry.fetchedAt) < f.ttl {
		return entry.posts
	}

	articles, err := f.lister.ListArticles(ctx, f.username, n, 0)
	if err != nil {
		f.logger.Error("Failed to fetch dev.to articles", "username", f.username, "error", err)
		return []model.BlogPost{}
	}

	posts := make([]model.BlogPost, 0, len(articles))
	for _, a := range articles {
		posts = append(posts, ToBlogPost(a))
	}
	if len(posts) > n {
		posts = posts[:n]
	}

	f.mu.Lock()
	f.entries[n] = feedEntry{posts: posts, fetchedAt: f.clock.Now()}
	f.mu.Unlock()
	return posts
}

// ToBlogPost maps an API article to the public post view.
func ToBlogPost(a APIArticle) model.BlogPost {
	tags := a.TagList
	if tags == nil {
		tags = []string{}
	}
	return model.BlogPost{
		Title:       a.Title,
		Description: a.Description,
		Date:        a.PublishedAt,
		Tags:        tags,
		URL:         a.URL,
		CoverImage:  a.CoverImage,
		ReadingTime: a.ReadingTimeMinutes,
	}
}
