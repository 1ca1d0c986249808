package radarr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"mmt/internal/config"
	"mmt/internal/services"
)

// Service rescans the Radarr movie that owns a path.
type Service interface {
	Refresh(ctx context.Context, path string) error
}

type noopService struct{}

func (noopService) Refresh(context.Context, string) error { return nil }

// NewNoopService returns a Service that does nothing.
func NewNoopService() Service { return noopService{} }

// HTTPDoer describes the HTTP client used by the Radarr service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the Radarr v3 API.
type Client struct {
	baseURL string
	apiKey  string
	client  HTTPDoer

	// PollAttempts bounds status checks after the command is queued.
	PollAttempts int
	PollInterval time.Duration
}

// NewConfiguredService returns a Radarr client when radarr.rescan is
// enabled with a URL and API key.
func NewConfiguredService(cfg *config.Config) Service {
	if cfg == nil || !cfg.Radarr.Rescan {
		return NewNoopService()
	}
	if strings.TrimSpace(cfg.Radarr.URL) == "" || strings.TrimSpace(cfg.Radarr.APIKey) == "" {
		return NewNoopService()
	}
	return NewClient(cfg.Radarr.URL, cfg.Radarr.APIKey, &http.Client{Timeout: 15 * time.Second})
}

// NewClient constructs a Radarr API client.
func NewClient(baseURL, apiKey string, client HTTPDoer) *Client {
	return &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:       strings.TrimSpace(apiKey),
		client:       client,
		PollAttempts: 6,
		PollInterval: 10 * time.Second,
	}
}

type movie struct {
	ID   int    `json:"id"`
	Path string `json:"path"`
}

type command struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	MovieID int    `json:"movieId,omitempty"`
}

// Refresh queues RescanMovie for the movie whose folder holds path, or for
// the whole library when no movie matches, and waits for completion.
func (c *Client) Refresh(ctx context.Context, path string) error {
	movieID, err := c.movieFor(ctx, path)
	if err != nil {
		return err
	}
	var queued command
	if err := c.call(ctx, http.MethodPost, "/api/v3/command", command{Name: "RescanMovie", MovieID: movieID}, &queued); err != nil {
		return services.Wrap(services.ErrTransient, "radarr", "queue rescan", path, err)
	}
	status := queued.Status
	for attempt := 0; !finished(status) && attempt < c.PollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.PollInterval):
		}
		var current command
		if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/v3/command/%d", queued.ID), nil, &current); err != nil {
			return services.Wrap(services.ErrTransient, "radarr", "poll rescan", path, err)
		}
		status = current.Status
	}
	switch strings.ToLower(status) {
	case "completed", "complete":
		return nil
	case "failed", "aborted":
		return services.Wrap(services.ErrExternalTool, "radarr", "rescan", path, fmt.Errorf("command %d %s", queued.ID, status))
	default:
		return services.Wrap(services.ErrTimeout, "radarr", "rescan", path, fmt.Errorf("command %d still %s", queued.ID, status))
	}
}

func finished(status string) bool {
	switch strings.ToLower(status) {
	case "completed", "complete", "failed", "aborted":
		return true
	}
	return false
}

func (c *Client) movieFor(ctx context.Context, path string) (int, error) {
	var movies []movie
	if err := c.call(ctx, http.MethodGet, "/api/v3/movie", nil, &movies); err != nil {
		return 0, services.Wrap(services.ErrTransient, "radarr", "list movies", path, err)
	}
	path = filepath.Clean(path)
	for _, m := range movies {
		if m.Path == "" {
			continue
		}
		dir := filepath.Clean(m.Path)
		if strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return m.ID, nil
		}
	}
	return 0, nil
}

func (c *Client) call(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
