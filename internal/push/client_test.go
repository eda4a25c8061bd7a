package push

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	custom_errors "github.com/chand1012/personal-site/internal/errors"
	"github.com/chand1012/personal-site/internal/model"
)

func TestNewClient_RequiresConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var missing *custom_errors.ErrMissingConfig

	_, err := NewClient("", "key", logger)
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "SYNC_PUSH_URL", missing.Key)

	_, err = NewClient("http://example.com", "", logger)
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "GITHUB_SYNC_API_KEY", missing.Key)
}

func TestClient_Set(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stats := model.MockGitHubStats()

	t.Run("posts with bearer auth", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var got model.GitHubStats
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			assert.Equal(t, stats, got)

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success":true,"message":"Stats updated successfully"}`))
		}))
		defer server.Close()

		client, err := NewClient(server.URL, "secret", logger)
		require.NoError(t, err)
		assert.NoError(t, client.Set(context.Background(), stats.Username, stats))
	})

	t.Run("surfaces endpoint errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"error":"Unauthorized"}`))
		}))
		defer server.Close()

		client, err := NewClient(server.URL, "wrong", logger)
		require.NoError(t, err)
		err = client.Set(context.Background(), stats.Username, stats)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
		assert.Contains(t, err.Error(), "Unauthorized")
	})
}
