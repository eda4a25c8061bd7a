// internal/github/client.go
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v62/github"
	"github.com/jonboulle/clockwork"
	"golang.org/x/oauth2"

	custom_errors "github.com/chand1012/personal-site/internal/errors"
	"github.com/chand1012/personal-site/internal/model"
	"github.com/chand1012/personal-site/internal/ratelimit"
)

const (
	perPage   = 100
	userAgent = "personal-site-sync/1.0"

	// fine-grained personal access tokens are sent as Bearer, classic ones as "token".
	fineGrainedPrefix = "github_pat_"
)

// Client is a wrapper around the go-github client.
type Client struct {
	gh        *github.Client
	transport *ratelimit.Transport
	logger    *slog.Logger
}

type options struct {
	baseURL string
	limits  ratelimit.Config
	clock   clockwork.Clock
	base    http.RoundTripper
}

// Option customises a Client.
type Option func(*options)

// WithBaseURL points the client at another API root, such as a test server.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithRateLimits overrides the default GitHub throttling policy.
func WithRateLimits(cfg ratelimit.Config) Option {
	return func(o *options) { o.limits = cfg }
}

// WithClock replaces the clock used for rate-limit waits.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithTransport sets the RoundTripper beneath the rate limiter.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

// NewClient creates and configures a new Client instance.
// Requests go through a rate-limited transport; when a token is provided it
// is attached by an oauth2 transport layered on top.
func NewClient(token string, logger *slog.Logger, opts ...Option) (*Client, error) {
	o := options{limits: ratelimit.GitHub, base: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}

	trOpts := []ratelimit.Option{ratelimit.WithBase(o.base), ratelimit.WithLogger(logger)}
	if o.clock != nil {
		trOpts = append(trOpts, ratelimit.WithClock(o.clock))
	}
	limited := ratelimit.NewTransport("github", o.limits, trOpts...)

	var rt http.RoundTripper = limited
	if token = strings.TrimSpace(token); token != "" {
		rt = &oauth2.Transport{Source: oauth2.StaticTokenSource(authToken(token)), Base: limited}
	}

	gh := github.NewClient(&http.Client{Transport: rt})
	gh.UserAgent = userAgent
	if o.baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(o.baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
		gh.BaseURL = u
	}

	return &Client{gh: gh, transport: limited, logger: logger}, nil
}

// authToken picks the Authorization scheme from the token format.
func authToken(token string) *oauth2.Token {
	t := &oauth2.Token{AccessToken: token, TokenType: "token"}
	if strings.HasPrefix(token, fineGrainedPrefix) {
		t.TokenType = "Bearer"
	}
	return t
}

// withBypass disables go-github's own rate-limit short-circuit so the
// transport alone decides when to wait.
func withBypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, github.BypassRateLimitCheck, true)
}

// GetUser fetches the profile counters of a user.
func (c *Client) GetUser(ctx context.Context, username string) (*model.Profile, error) {
	user, _, err := c.gh.Users.Get(withBypass(ctx), username)
	if err != nil {
		return nil, classify(err)
	}
	return &model.Profile{
		Login:       user.GetLogin(),
		Followers:   user.GetFollowers(),
		Following:   user.GetFollowing(),
		PublicGists: user.GetPublicGists(),
		PublicRepos: user.GetPublicRepos(),
	}, nil
}

// ListUserRepos fetches every repository owned by a user.
// It handles API pagination transparently.
func (c *Client) ListUserRepos(ctx context.Context, username string) ([]model.Repository, error) {
	logger := c.logger.With("user", username)
	return paginate(ctx, func(ctx context.Context, page int) ([]*github.Repository, error) {
		logger.Debug("Fetching user repos page", "page", page)
		repos, _, err := c.gh.Repositories.ListByUser(withBypass(ctx), username, &github.RepositoryListByUserOptions{
			Sort:        "updated",
			ListOptions: github.ListOptions{Page: page, PerPage: perPage},
		})
		return repos, err
	})
}

// ListOrgRepos fetches every repository of an organization.
func (c *Client) ListOrgRepos(ctx context.Context, org string) ([]model.Repository, error) {
	logger := c.logger.With("org", org)
	return paginate(ctx, func(ctx context.Context, page int) ([]*github.Repository, error) {
		logger.Debug("Fetching org repos page", "page", page)
		repos, _, err := c.gh.Repositories.ListByOrg(withBypass(ctx), org, &github.RepositoryListByOrgOptions{
			Sort:        "updated",
			ListOptions: github.ListOptions{Page: page, PerPage: perPage},
		})
		return repos, err
	})
}

// ListStarred fetches the most recently starred repositories of a user.
func (c *Client) ListStarred(ctx context.Context, username string, limit int) ([]model.StarredRepo, error) {
	starred, _, err := c.gh.Activity.ListStarred(withBypass(ctx), username, &github.ActivityListStarredOptions{
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: limit},
	})
	if err != nil {
		return nil, classify(err)
	}

	out := make([]model.StarredRepo, 0, len(starred))
	for _, s := range starred {
		if s.Repository == nil {
			continue
		}
		out = append(out, toStarredRepo(s.Repository))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// RateLimit queries /rate_limit and returns the state the transport recorded.
func (c *Client) RateLimit(ctx context.Context) (model.RateLimitInfo, error) {
	if _, _, err := c.gh.RateLimit.Get(withBypass(ctx)); err != nil {
		if info, ok := c.transport.RateLimit(); ok {
			c.logger.Error("Failed to check rate limit status, returning last known state", "error", err)
			return info, nil
		}
		return model.RateLimitInfo{}, classify(err)
	}
	info, _ := c.transport.RateLimit()
	return info, nil
}

// paginate requests pages of perPage items until a short or empty page.
func paginate(ctx context.Context, fetch func(ctx context.Context, page int) ([]*github.Repository, error)) ([]model.Repository, error) {
	var all []model.Repository
	for page := 1; ; page++ {
		repos, err := fetch(ctx, page)
		if err != nil {
			return nil, classify(err)
		}
		for _, r := range repos {
			all = append(all, toRepository(r))
		}
		if len(repos) < perPage {
			return all, nil
		}
	}
}

// IsNotFound reports whether err stems from a 404 response.
func IsNotFound(err error) bool {
	return errors.Is(err, custom_errors.ErrNotFound)
}

// classify tags 404 responses with ErrNotFound and leaves other errors intact.
func classify(err error) error {
	if StatusCode(err) == http.StatusNotFound {
		return fmt.Errorf("%w: %w", custom_errors.ErrNotFound, err)
	}
	return err
}

// StatusCode extracts the HTTP status from a go-github error, or 0.
func StatusCode(err error) int {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) && rateErr.Response != nil {
		return rateErr.Response.StatusCode
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) && abuseErr.Response != nil {
		return abuseErr.Response.StatusCode
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode
	}
	return 0
}

// toRepository translates a github.Repository object to our internal model.Repository.
func toRepository(r *github.Repository) model.Repository {
	return model.Repository{
		Name:       r.GetName(),
		FullName:   r.GetFullName(),
		Stars:      r.GetStargazersCount(),
		Forks:      r.GetForksCount(),
		OwnerLogin: r.GetOwner().GetLogin(),
		OwnerType:  r.GetOwner().GetType(),
	}
}

func toStarredRepo(r *github.Repository) model.StarredRepo {
	return model.StarredRepo{
		Name:        r.GetName(),
		FullName:    r.GetFullName(),
		Owner:       r.GetOwner().GetLogin(),
		Description: r.Description,
		URL:         r.GetHTMLURL(),
		Stars:       r.GetStargazersCount(),
		Language:    r.Language,
	}
}
