// Package blog reads articles from the dev.to API, serves the latest posts
// to the site and mirrors full articles into Postgres.
package blog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	custom_errors "github.com/chand1012/personal-site/internal/errors"
	"github.com/chand1012/personal-site/internal/ratelimit"
)

const (
	// DefaultBaseURL is the dev.to API root.
	DefaultBaseURL = "https://dev.to/api"

	// attemptTimeout bounds one upstream attempt. Rate-limit waits are not
	// counted against it.
	attemptTimeout = 30 * time.Second
	maxPerPage     = 1000
)

// APIUser is the author block of a dev.to article.
type APIUser struct {
	Name            string  `json:"name"`
	Username        string  `json:"username"`
	TwitterUsername *string `json:"twitter_username"`
	GithubUsername  *string `json:"github_username"`
	UserID          int64   `json:"user_id"`
	WebsiteURL      *string `json:"website_url"`
	ProfileImage    string  `json:"profile_image"`
	ProfileImage90  string  `json:"profile_image_90"`
}

// APIOrganization is the organization block of a dev.to article.
type APIOrganization struct {
	Name           string `json:"name"`
	Username       string `json:"username"`
	Slug           string `json:"slug"`
	ProfileImage   string `json:"profile_image"`
	ProfileImage90 string `json:"profile_image_90"`
}

// APIArticle is an article as returned by the dev.to API. BodyMarkdown is
// only populated by the single-article endpoint.
type APIArticle struct {
	ID                 int64            `json:"id"`
	Title              string           `json:"title"`
	Description        string           `json:"description"`
	Slug               string           `json:"slug"`
	URL                string           `json:"url"`
	CoverImage         *string          `json:"cover_image"`
	PublishedAt        time.Time        `json:"published_at"`
	PublishedTimestamp time.Time        `json:"published_timestamp"`
	EditedAt           *time.Time       `json:"edited_at"`
	ReadingTimeMinutes int              `json:"reading_time_minutes"`
	TagList            []string         `json:"tag_list"`
	Tags               string           `json:"tags"`
	BodyMarkdown       *string          `json:"body_markdown"`
	User               APIUser          `json:"user"`
	Organization       *APIOrganization `json:"organization"`
}

// UnmarshalJSON accepts tag_list as either an array or a comma separated
// string; the single-article endpoint returns the latter.
func (a *APIArticle) UnmarshalJSON(data []byte) error {
	type plain APIArticle
	aux := struct {
		*plain
		TagList json.RawMessage `json:"tag_list"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.TagList = nil
	if len(aux.TagList) == 0 || string(aux.TagList) == "null" {
		return nil
	}
	if aux.TagList[0] == '"' {
		var joined string
		if err := json.Unmarshal(aux.TagList, &joined); err != nil {
			return err
		}
		for _, tag := range strings.Split(joined, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				a.TagList = append(a.TagList, tag)
			}
		}
		return nil
	}
	return json.Unmarshal(aux.TagList, &a.TagList)
}

// StatusError is returned for non-2xx dev.to responses.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dev.to: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// Client talks to the dev.to API through a rate-limited transport.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

type options struct {
	baseURL string
	limits  ratelimit.Config
	clock   clockwork.Clock
	base    http.RoundTripper
}

// Option customises a Client.
type Option func(*options)

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) Option {
	return func(o *options) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithRateLimits overrides the default dev.to throttling policy.
func WithRateLimits(cfg ratelimit.Config) Option {
	return func(o *options) { o.limits = cfg }
}

// WithClock replaces the clock used for rate-limit waits.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// NewClient creates a dev.to client. apiKey may be empty for public reads.
func NewClient(apiKey string, logger *slog.Logger, opts ...Option) *Client {
	o := options{baseURL: DefaultBaseURL, limits: ratelimit.DevTo, base: attemptTransport()}
	for _, opt := range opts {
		opt(&o)
	}

	trOpts := []ratelimit.Option{ratelimit.WithBase(o.base), ratelimit.WithLogger(logger)}
	if o.clock != nil {
		trOpts = append(trOpts, ratelimit.WithClock(o.clock))
	}

	return &Client{
		http:    &http.Client{Transport: ratelimit.NewTransport("devto", o.limits, trOpts...)},
		baseURL: strings.TrimSuffix(o.baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger,
	}
}

func attemptTransport() *http.Transport {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.ResponseHeaderTimeout = attemptTimeout
	return tr
}

// ListArticles fetches one page of a user's published articles.
func (c *Client) ListArticles(ctx context.Context, username string, perPage, page int) ([]APIArticle, error) {
	q := url.Values{}
	q.Set("username", username)
	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}

	var articles []APIArticle
	if err := c.get(ctx, "/articles?"+q.Encode(), false, &articles); err != nil {
		return nil, fmt.Errorf("list articles for %s: %w", username, err)
	}
	return articles, nil
}

// ListAllArticles pages through every published article of a user.
func (c *Client) ListAllArticles(ctx context.Context, username string) ([]APIArticle, error) {
	var all []APIArticle
	for page := 1; ; page++ {
		batch, err := c.ListArticles(ctx, username, maxPerPage, page)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < maxPerPage {
			return all, nil
		}
	}
}

// GetArticle fetches a single article including its markdown body. It
// requires an API key.
func (c *Client) GetArticle(ctx context.Context, id int64) (*APIArticle, error) {
	if c.apiKey == "" {
		return nil, &custom_errors.ErrMissingConfig{Key: "DEV_API_KEY"}
	}
	var article APIArticle
	if err := c.get(ctx, "/articles/"+strconv.FormatInt(id, 10), true, &article); err != nil {
		return nil, fmt.Errorf("get article %d: %w", id, err)
	}
	return &article, nil
}

func (c *Client) get(ctx context.Context, path string, authenticated bool, out any) error {
	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if authenticated {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, URL: endpoint, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
