// internal/api/handler_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chand1012/personal-site/internal/cache"
	"github.com/chand1012/personal-site/internal/model"
	"github.com/chand1012/personal-site/internal/og"
)

const testKey = "s3cret"

// MockStore is a mock of the StatsWriter interface.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Set(ctx context.Context, username string, stats model.GitHubStats) error {
	args := m.Called(ctx, username, stats)
	return args.Error(0)
}

type fakeStats struct {
	stats  model.GitHubStats
	cached bool
}

func (f fakeStats) Stats(_ context.Context, username string) (model.GitHubStats, bool) {
	if !f.cached {
		return model.MockGitHubStats(), false
	}
	return f.stats, true
}

type fakeFeed struct {
	posts []model.BlogPost
	asked []int
}

func (f *fakeFeed) Latest(_ context.Context, n int) []model.BlogPost {
	f.asked = append(f.asked, n)
	if n < len(f.posts) {
		return f.posts[:n]
	}
	return f.posts
}

type fakeBlogSync struct {
	count int
	err   error
}

func (f fakeBlogSync) Sync(context.Context) (int, error) { return f.count, f.err }

type failingRenderer struct{}

func (failingRenderer) RenderPNG(og.Scene) ([]byte, error) { return nil, errors.New("no fonts") }

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T, mutate func(*Deps)) http.Handler {
	t.Helper()
	renderer, err := og.NewRenderer()
	require.NoError(t, err)
	deps := Deps{
		Stats:        fakeStats{},
		Store:        new(MockStore),
		Feed:         &fakeFeed{},
		Images:       renderer,
		Username:     "octo",
		BlogUsername: "octo",
		SyncAPIKey:   testKey,
	}
	if mutate != nil {
		mutate(&deps)
	}
	return NewRouter(deps, testLogger())
}

func do(router http.Handler, method, target, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

const validPayload = `{
	"username": "octo",
	"totalStars": 16, "totalRepos": 3, "totalFollowers": 10,
	"totalForks": 17, "following": 5, "publicGists": 2,
	"starsByOrg": {"Acme": 11},
	"starredRepos": [{"name": "x", "fullName": "a/x", "owner": "a", "url": "https://github.com/a/x", "stars": 1}]
}`

func TestHealthCheck(t *testing.T) {
	rec := do(newTestRouter(t, nil), http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetrics(t *testing.T) {
	rec := do(newTestRouter(t, nil), http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stats_fallback_served_total")
}

func TestSyncStats_Auth(t *testing.T) {
	tests := []struct {
		name string
		key  string
		auth string
		want int
	}{
		{"missing header", testKey, "", http.StatusUnauthorized},
		{"wrong key", testKey, "Bearer nope", http.StatusUnauthorized},
		{"no key configured", "", "Bearer " + testKey, http.StatusUnauthorized},
		{"bearer key", testKey, "Bearer " + testKey, http.StatusOK},
		{"plain key", testKey, testKey, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			store.On("Set", mock.Anything, "octo", mock.Anything).Return(nil).Maybe()
			router := newTestRouter(t, func(d *Deps) {
				d.Store = store
				d.SyncAPIKey = tt.key
			})

			rec := do(router, http.MethodPost, "/sync-stats", tt.auth, validPayload)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				body := decodeBody(t, rec)
				assert.Equal(t, false, body["success"])
				store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestSyncStats_Stores(t *testing.T) {
	store := new(MockStore)
	store.On("Set", mock.Anything, "octo", mock.MatchedBy(func(s model.GitHubStats) bool {
		return s.TotalStars == 16 && s.StarsByOrg["Acme"] == 11 && len(s.StarredRepos) == 1
	})).Return(nil).Once()
	router := newTestRouter(t, func(d *Deps) { d.Store = store })

	rec := do(router, http.MethodPost, "/sync-stats", "Bearer "+testKey, validPayload)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"success": true,
		"username": "octo",
		"message": "GitHub stats cached successfully",
		"stats": {
			"totalStars": 16, "totalRepos": 3, "totalFollowers": 10,
			"totalForks": 17, "following": 5, "publicGists": 2,
			"starredReposCount": 1
		}
	}`, rec.Body.String())
	store.AssertExpectations(t)
}

func TestSyncStats_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"malformed json", `{"username":`, "Invalid JSON in request body"},
		{"trailing garbage", validPayload + `garbage`, "Invalid JSON in request body"},
		{"two objects", validPayload + validPayload, "Invalid JSON in request body"},
		{"not an object", `[1,2]`, "Invalid payload - must be a valid GitHubStats object"},
		{"missing field", `{"username":"octo","totalStars":1,"totalRepos":1,"totalFollowers":1,"totalForks":1,"following":1}`, "Invalid payload - must be a valid GitHubStats object"},
		{"wrong type", `{"username":7,"totalStars":1,"totalRepos":1,"totalFollowers":1,"totalForks":1,"following":1,"publicGists":1}`, "Invalid payload - must be a valid GitHubStats object"},
		{"null", `null`, "Invalid payload - must be a valid GitHubStats object"},
		{"negative counter", `{"username":"octo","totalStars":-1,"totalRepos":1,"totalFollowers":1,"totalForks":1,"following":1,"publicGists":1}`, "Invalid payload - "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			router := newTestRouter(t, func(d *Deps) { d.Store = store })

			rec := do(router, http.MethodPost, "/sync-stats", "Bearer "+testKey, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Contains(t, body["error"], tt.wantErr)
			store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSyncStats_StoreFailure(t *testing.T) {
	store := new(MockStore)
	store.On("Set", mock.Anything, "octo", mock.Anything).Return(errors.New("redis down")).Once()
	router := newTestRouter(t, func(d *Deps) { d.Store = store })

	rec := do(router, http.MethodPost, "/sync-stats", "Bearer "+testKey, validPayload)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "redis down", decodeBody(t, rec)["error"])
}

func TestSyncStats_GetIsDeprecated(t *testing.T) {
	rec := do(newTestRouter(t, nil), http.MethodGet, "/sync-stats", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "GET method is deprecated", body["error"])
	assert.Contains(t, body["message"], "portfolio sync-stats")
}

func TestSyncBlog(t *testing.T) {
	t.Run("unauthorized", func(t *testing.T) {
		rec := do(newTestRouter(t, nil), http.MethodPost, "/sync-blog", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("username not set", func(t *testing.T) {
		router := newTestRouter(t, func(d *Deps) { d.BlogUsername = "" })
		rec := do(router, http.MethodPost, "/sync-blog", testKey, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "DEV_TO_BLOG_USERNAME is not set", decodeBody(t, rec)["error"])
	})

	t.Run("no article store", func(t *testing.T) {
		rec := do(newTestRouter(t, nil), http.MethodPost, "/sync-blog", testKey, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("returns the listed count", func(t *testing.T) {
		router := newTestRouter(t, func(d *Deps) { d.BlogSync = fakeBlogSync{count: 4} })
		rec := do(router, http.MethodPost, "/sync-blog", "Bearer "+testKey, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"count":4}`, rec.Body.String())
	})

	t.Run("sync failure", func(t *testing.T) {
		router := newTestRouter(t, func(d *Deps) { d.BlogSync = fakeBlogSync{err: errors.New("dev.to down")} })
		rec := do(router, http.MethodPost, "/sync-blog", testKey, "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestGetStats(t *testing.T) {
	t.Run("cached", func(t *testing.T) {
		stats := model.GitHubStats{Username: "octo", TotalStars: 42}
		router := newTestRouter(t, func(d *Deps) { d.Stats = fakeStats{stats: stats, cached: true} })

		rec := do(router, http.MethodGet, "/api/stats", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var got statsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.False(t, got.Fallback)
		assert.Equal(t, 42, got.Stats.TotalStars)
	})

	t.Run("fallback", func(t *testing.T) {
		rec := do(newTestRouter(t, nil), http.MethodGet, "/api/stats", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var got statsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.True(t, got.Fallback)
		assert.Equal(t, model.MockGitHubStats(), got.Stats)
	})
}

func TestGetPosts(t *testing.T) {
	posts := []model.BlogPost{
		{Title: "one", Tags: []string{}, Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{Title: "two", Tags: []string{"go"}, Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	t.Run("default count", func(t *testing.T) {
		feed := &fakeFeed{posts: posts}
		rec := do(newTestRouter(t, func(d *Deps) { d.Feed = feed }), http.MethodGet, "/api/posts", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []int{defaultPostCount}, feed.asked)
		var got []model.BlogPost
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Len(t, got, 2)
	})

	t.Run("explicit count", func(t *testing.T) {
		feed := &fakeFeed{posts: posts}
		rec := do(newTestRouter(t, func(d *Deps) { d.Feed = feed }), http.MethodGet, "/api/posts?count=1", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []int{1}, feed.asked)
	})

	t.Run("empty feed is an empty array", func(t *testing.T) {
		feed := &fakeFeed{posts: []model.BlogPost{}}
		rec := do(newTestRouter(t, func(d *Deps) { d.Feed = feed }), http.MethodGet, "/api/posts", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]", rec.Body.String())
	})

	for _, bad := range []string{"0", "-1", "31", "abc"} {
		t.Run("invalid count "+bad, func(t *testing.T) {
			rec := do(newTestRouter(t, nil), http.MethodGet, "/api/posts?count="+bad, "", "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestOGImage(t *testing.T) {
	feed := &fakeFeed{posts: []model.BlogPost{{Title: "Hello", Tags: []string{"go"}, ReadingTime: 3}}}
	router := newTestRouter(t, func(d *Deps) { d.Feed = feed })

	for _, name := range []string{"github", "hero", "blog", "projects", "employment", "skills"} {
		for _, theme := range []string{"", "light", "dark"} {
			t.Run(name+"/"+theme, func(t *testing.T) {
				rec := do(router, http.MethodGet, "/og/"+name+"?theme="+theme, "", "")
				require.Equal(t, http.StatusOK, rec.Code)
				assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

				img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
				require.NoError(t, err)
				assert.Equal(t, og.Width, img.Bounds().Dx())
				assert.Equal(t, og.Height, img.Bounds().Dy())
			})
		}
	}
	assert.Contains(t, feed.asked, ogPostCount)
}

func TestOGImage_Errors(t *testing.T) {
	t.Run("unknown image", func(t *testing.T) {
		rec := do(newTestRouter(t, nil), http.MethodGet, "/og/nope", "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("render failure", func(t *testing.T) {
		router := newTestRouter(t, func(d *Deps) { d.Images = failingRenderer{} })
		rec := do(router, http.MethodGet, "/og/skills", "", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestSyncStats_RoundTripsThroughStore(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(time.Hour, nil, testLogger())
	router := newTestRouter(t, func(d *Deps) { d.Store = store })

	body := `{"username":"octo","totalStars":3,"totalRepos":1,"totalFollowers":0,
		"totalForks":0,"following":0,"publicGists":0,"starsByOrg":{},"starredRepos":[]}`
	rec := do(router, http.MethodPost, "/sync-stats", "Bearer "+testKey, body)
	require.Equal(t, http.StatusOK, rec.Code)

	var pushed statsPayload
	require.NoError(t, json.Unmarshal([]byte(body), &pushed))
	want, ok := pushed.toStats()
	require.True(t, ok)
	assert.Nil(t, want.StarsByOrg)
	assert.Nil(t, want.StarredRepos)

	got, ok := store.Get(ctx, "octo")
	require.True(t, ok)
	assert.Equal(t, want, got)

	// Stored and served JSON are identical.
	wantJSON, err := json.Marshal(want)
	require.NoError(t, err)
	gotJSON, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(wantJSON), string(gotJSON))
}
