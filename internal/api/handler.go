// internal/api/handler.go
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chand1012/personal-site/internal/metrics"
	"github.com/chand1012/personal-site/internal/model"
)

const (
	maxBodyBytes     = 1 << 20
	defaultPostCount = 3
	maxPostCount     = 30
)

// StatsReader returns stats for a user, falling back to defaults.
// The boolean reports whether the record came from the cache.
type StatsReader interface {
	Stats(ctx context.Context, username string) (model.GitHubStats, bool)
}

// StatsWriter stores pushed stats.
type StatsWriter interface {
	Set(ctx context.Context, username string, stats model.GitHubStats) error
}

// PostFeed lists the latest blog posts.
type PostFeed interface {
	Latest(ctx context.Context, n int) []model.BlogPost
}

// BlogSyncer mirrors blog articles into the database.
type BlogSyncer interface {
	Sync(ctx context.Context) (int, error)
}

// Deps holds everything the routes need. BlogSync may be nil when no
// article store is configured.
type Deps struct {
	Stats        StatsReader
	Store        StatsWriter
	Feed         PostFeed
	BlogSync     BlogSyncer
	Images       ImageRenderer
	Username     string
	BlogUsername string
	SyncAPIKey   string
}

// Handler is the container for API dependencies.
type Handler struct {
	deps   Deps
	logger *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(deps Deps, logger *slog.Logger) http.Handler {
	h := &Handler{
		deps:   deps,
		logger: logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger) // Chi's default logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.healthCheck)
	r.Handle("/metrics", metrics.Handler())

	r.Post("/sync-stats", h.syncStats)
	r.Get("/sync-stats", h.syncStatsDeprecated)
	r.Post("/sync-blog", h.syncBlog)

	r.Get("/og/{name}", h.ogImage)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", h.getStats)
		r.Get("/posts", h.getPosts)
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authorized compares the Authorization header, with or without a Bearer
// prefix, against the configured key. No configured key rejects everything.
func (h *Handler) authorized(r *http.Request) bool {
	if h.deps.SyncAPIKey == "" {
		h.logger.Error("GITHUB_SYNC_API_KEY is not configured")
		return false
	}
	provided := r.Header.Get("Authorization")
	if provided == "" {
		return false
	}
	provided = strings.TrimPrefix(provided, "Bearer ")
	return subtle.ConstantTimeCompare([]byte(provided), []byte(h.deps.SyncAPIKey)) == 1
}

// statsPayload mirrors model.GitHubStats with pointers so absent fields can
// be told apart from zeros.
type statsPayload struct {
	Username       *string             `json:"username"`
	TotalStars     *int                `json:"totalStars"`
	TotalRepos     *int                `json:"totalRepos"`
	TotalFollowers *int                `json:"totalFollowers"`
	TotalForks     *int                `json:"totalForks"`
	Following      *int                `json:"following"`
	PublicGists    *int                `json:"publicGists"`
	StarsByOrg     map[string]int      `json:"starsByOrg"`
	StarredRepos   []model.StarredRepo `json:"starredRepos"`
}

func (p statsPayload) toStats() (model.GitHubStats, bool) {
	if p.Username == nil || p.TotalStars == nil || p.TotalRepos == nil || p.TotalFollowers == nil ||
		p.TotalForks == nil || p.Following == nil || p.PublicGists == nil {
		return model.GitHubStats{}, false
	}
	// Empty collections are stored as absent, the same shape reads return.
	if len(p.StarsByOrg) == 0 {
		p.StarsByOrg = nil
	}
	if len(p.StarredRepos) == 0 {
		p.StarredRepos = nil
	}
	return model.GitHubStats{
		Username:       *p.Username,
		TotalStars:     *p.TotalStars,
		TotalRepos:     *p.TotalRepos,
		TotalFollowers: *p.TotalFollowers,
		TotalForks:     *p.TotalForks,
		Following:      *p.Following,
		PublicGists:    *p.PublicGists,
		StarsByOrg:     p.StarsByOrg,
		StarredRepos:   p.StarredRepos,
	}, true
}

type syncSummary struct {
	TotalStars        int `json:"totalStars"`
	TotalRepos        int `json:"totalRepos"`
	TotalFollowers    int `json:"totalFollowers"`
	TotalForks        int `json:"totalForks"`
	Following         int `json:"following"`
	PublicGists       int `json:"publicGists"`
	StarredReposCount int `json:"starredReposCount"`
}

type syncResponse struct {
	Success  bool        `json:"success"`
	Username string      `json:"username"`
	Message  string      `json:"message"`
	Stats    syncSummary `json:"stats"`
}

// syncStats stores stats pushed by a standalone sync run.
// POST /sync-stats
func (h *Handler) syncStats(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized - Invalid or missing API key")
		return
	}

	var payload statsPayload
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&payload); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			respondWithError(w, http.StatusBadRequest, "Invalid payload - must be a valid GitHubStats object")
			return
		}
		respondWithError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	// The body must hold exactly one JSON value.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	stats, ok := payload.toStats()
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid payload - must be a valid GitHubStats object")
		return
	}
	if err := stats.Validate(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid payload - "+err.Error())
		return
	}

	h.logger.Info("Received pushed stats", "username", stats.Username)
	if err := h.deps.Store.Set(r.Context(), stats.Username, stats); err != nil {
		h.logger.Error("Failed to store pushed stats", "username", stats.Username, "error", err)
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, syncResponse{
		Success:  true,
		Username: stats.Username,
		Message:  "GitHub stats cached successfully",
		Stats: syncSummary{
			TotalStars:        stats.TotalStars,
			TotalRepos:        stats.TotalRepos,
			TotalFollowers:    stats.TotalFollowers,
			TotalForks:        stats.TotalForks,
			Following:         stats.Following,
			PublicGists:       stats.PublicGists,
			StarredReposCount: len(stats.StarredRepos),
		},
	})
}

// syncStatsDeprecated answers the old GET trigger.
// GET /sync-stats
func (h *Handler) syncStatsDeprecated(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusMethodNotAllowed, errorResponse{
		Success: false,
		Error:   "GET method is deprecated",
		Message: "Run `portfolio sync-stats` with SYNC_PUSH_URL set, which POSTs the stats with API key authentication.",
	})
}

// syncBlog mirrors dev.to articles into the database.
// POST /sync-blog
func (h *Handler) syncBlog(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized - Invalid or missing API key")
		return
	}
	if h.deps.BlogUsername == "" {
		respondWithError(w, http.StatusBadRequest, "DEV_TO_BLOG_USERNAME is not set")
		return
	}
	if h.deps.BlogSync == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Article store is not configured")
		return
	}

	count, err := h.deps.BlogSync.Sync(r.Context())
	if err != nil {
		h.logger.Error("Blog sync failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to sync blog posts")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"count": count})
}

type statsResponse struct {
	Stats    model.GitHubStats `json:"stats"`
	Fallback bool              `json:"fallback"`
}

// getStats returns the cached stats or the defaults.
// GET /api/stats
func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, cached := h.deps.Stats.Stats(r.Context(), h.deps.Username)
	respondWithJSON(w, http.StatusOK, statsResponse{Stats: stats, Fallback: !cached})
}

// getPosts returns the latest blog posts.
// GET /api/posts?count=N
func (h *Handler) getPosts(w http.ResponseWriter, r *http.Request) {
	count := defaultPostCount
	if s := r.URL.Query().Get("count"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > maxPostCount {
			respondWithError(w, http.StatusBadRequest, "Invalid 'count' parameter. Must be an integer between 1 and 30.")
			return
		}
		count = n
	}
	respondWithJSON(w, http.StatusOK, h.deps.Feed.Latest(r.Context(), count))
}
