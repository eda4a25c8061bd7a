// internal/model/models.go
package model

import (
	"time"

	custom_errors "github.com/chand1012/personal-site/internal/errors"
)

// StarredRepo is a summary of a repository the user recently starred.
type StarredRepo struct {
	Name        string  `json:"name" bson:"name"`
	FullName    string  `json:"fullName" bson:"full_name"`
	Owner       string  `json:"owner" bson:"owner"`
	Description *string `json:"description" bson:"description"`
	URL         string  `json:"url" bson:"url"`
	Stars       int     `json:"stars" bson:"stars"`
	Language    *string `json:"language" bson:"language"`
}

// GitHubStats is the consolidated statistics record cached per username.
type GitHubStats struct {
	Username       string         `json:"username"`
	TotalStars     int            `json:"totalStars"`
	TotalRepos     int            `json:"totalRepos"`
	TotalFollowers int            `json:"totalFollowers"`
	TotalForks     int            `json:"totalForks"`
	Following      int            `json:"following"`
	PublicGists    int            `json:"publicGists"`
	StarsByOrg     map[string]int `json:"starsByOrg,omitempty"`
	StarredRepos   []StarredRepo  `json:"starredRepos,omitempty"`
}

// Validate checks the invariants of a stats record: every counter is
// non-negative and the per-organization stars never exceed the total.
func (s GitHubStats) Validate() error {
	if s.Username == "" {
		return &custom_errors.ErrInvalidStats{Field: "username", Reason: "must not be empty"}
	}
	counters := []struct {
		name  string
		value int
	}{
		{"totalStars", s.TotalStars},
		{"totalRepos", s.TotalRepos},
		{"totalFollowers", s.TotalFollowers},
		{"totalForks", s.TotalForks},
		{"following", s.Following},
		{"publicGists", s.PublicGists},
	}
	for _, c := range counters {
		if c.value < 0 {
			return &custom_errors.ErrInvalidStats{Field: c.name, Reason: "must be non-negative"}
		}
	}

	var orgStars int
	for org, stars := range s.StarsByOrg {
		if stars < 0 {
			return &custom_errors.ErrInvalidStats{Field: "starsByOrg." + org, Reason: "must be non-negative"}
		}
		orgStars += stars
	}
	if orgStars > s.TotalStars {
		return &custom_errors.ErrInvalidStats{Field: "starsByOrg", Reason: "sum exceeds totalStars"}
	}
	return nil
}

// Profile is the subset of a GitHub user profile the sync needs.
type Profile struct {
	Login       string
	Followers   int
	Following   int
	PublicGists int
	PublicRepos int
}

// Repository is a repository as seen by the aggregation step.
type Repository struct {
	Name       string
	FullName   string
	Stars      int
	Forks      int
	OwnerLogin string
	OwnerType  string
}

// OwnerTypeOrganization is the owner type GitHub reports for org-owned repos.
const OwnerTypeOrganization = "Organization"

// CacheEntry wraps a serialized stats payload with its freshness window.
type CacheEntry struct {
	Username  string `bson:"username"`
	Stats     []byte `bson:"stats"`
	CachedAt  int64  `bson:"cached_at"`
	ExpiresAt int64  `bson:"expires_at"`
}

// Expired reports whether the entry is stale at now. A zero ExpiresAt never expires.
func (e CacheEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != 0 && now.Unix() >= e.ExpiresAt
}

// RateLimitInfo mirrors the X-RateLimit-* headers of the latest response.
type RateLimitInfo struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Reset     int64 `json:"reset"`
	Used      int   `json:"used"`
}

// ResetTime returns Reset as a time.Time.
func (r RateLimitInfo) ResetTime() time.Time {
	return time.Unix(r.Reset, 0)
}

// BlogPost is the public view of a dev.to article.
type BlogPost struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Tags        []string  `json:"tags"`
	URL         string    `json:"url"`
	CoverImage  *string   `json:"coverImage"`
	ReadingTime int       `json:"readingTime"`
}

// ArticleAuthor is stored alongside an article as a JSON blob.
type ArticleAuthor struct {
	Name            string `json:"name"`
	Username        string `json:"username"`
	TwitterUsername string `json:"twitterUsername"`
	GithubUsername  string `json:"githubUsername"`
	UserID          int64  `json:"userId"`
	WebsiteURL      string `json:"websiteUrl"`
	ProfileImage    string `json:"profileImage"`
	ProfileImage90  string `json:"profileImage90"`
}

// ArticleOrganization is stored alongside an article as a JSON blob.
type ArticleOrganization struct {
	Name           string `json:"name"`
	Username       string `json:"username"`
	ProfileImage   string `json:"profileImage"`
	ProfileImage90 string `json:"profileImage90"`
}

// Article is a fully synced blog article, including its markdown body.
type Article struct {
	ID                 int64
	Title              string
	Description        string
	CanonicalURL       string
	PublishedAt        time.Time
	EditedAt           time.Time
	ReadingTimeMinutes int
	Tags               string
	Content            string
	Author             ArticleAuthor
	Organization       ArticleOrganization
}
