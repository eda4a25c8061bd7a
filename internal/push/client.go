// Package push sends finished stats to a remote /sync-stats endpoint.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	custom_errors "github.com/chand1012/personal-site/internal/errors"
	"github.com/chand1012/personal-site/internal/model"
)

const defaultTimeout = 30 * time.Second

// Client posts stats records to a push endpoint authenticated by a shared key.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
	logger *slog.Logger
}

// NewClient returns a Client for url. Both url and apiKey are required.
func NewClient(url, apiKey string, logger *slog.Logger) (*Client, error) {
	if url == "" {
		return nil, &custom_errors.ErrMissingConfig{Key: "SYNC_PUSH_URL"}
	}
	if apiKey == "" {
		return nil, &custom_errors.ErrMissingConfig{Key: "GITHUB_SYNC_API_KEY"}
	}
	return &Client{
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{Timeout: defaultTimeout},
		logger: logger,
	}, nil
}

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Set posts stats to the endpoint. The username is carried in the payload.
func (c *Client) Set(ctx context.Context, username string, stats model.GitHubStats) error {
	body, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("push stats: %w", err)
	}
	defer resp.Body.Close()

	var out response
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode != http.StatusOK || !out.Success {
		msg := out.Error
		if msg == "" {
			msg = string(raw)
		}
		return fmt.Errorf("push endpoint returned %d: %s", resp.StatusCode, msg)
	}
	c.logger.Info("Pushed stats", "username", username, "url", c.url, "message", out.Message)
	return nil
}
