// Package relay forwards harvested data to an external collector over HTTP.
// The collector is best-effort: extraction never depends on it being up.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonesrussell/liharvest/internal/logger"
	"github.com/jonesrussell/liharvest/internal/models"
)

// DefaultTimeout bounds one delivery attempt.
const DefaultTimeout = 15 * time.Second

// Client delivers harvested records to a collector endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Interface
}

// Option customizes a relay client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the relay's logger.
func WithLogger(log logger.Interface) Option {
	return func(c *Client) { c.logger = log }
}

// New builds a relay client for the collector at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger.NewNoOp(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SavePosts delivers one reconciled pass to the collector. The payload
// carries the records exactly as persisted locally.
func (c *Client) SavePosts(ctx context.Context, records []models.PostRecord) error {
	payload := struct {
		Posts     []models.PostRecord `json:"posts"`
		Count     int                 `json:"count"`
		Timestamp time.Time           `json:"timestamp"`
	}{
		Posts:     records,
		Count:     len(records),
		Timestamp: time.Now(),
	}
	return c.post(ctx, "/api/posts", payload)
}

// SaveAnalytics delivers an account-level analytics snapshot.
func (c *Client) SaveAnalytics(ctx context.Context, snapshot models.AnalyticsSnapshot) error {
	return c.post(ctx, "/api/analytics", snapshot)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal relay payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach collector: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("collector rejected %s: status %d", path, resp.StatusCode)
	}

	c.logger.Debug("relay delivery complete", "path", path, "status", resp.StatusCode)
	return nil
}
