package jellyfin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mmt/internal/config"
	"mmt/internal/services"
)

// HTTPDoer describes the HTTP client used by the Jellyfin service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type httpService struct {
	baseURL string
	apiKey  string
	client  HTTPDoer
}

// NewConfiguredService returns the HTTP service when jellyfin.enabled is set
// with a url and api key, and a no-op otherwise.
func NewConfiguredService(cfg *config.Config) Service {
	if cfg == nil || !cfg.Jellyfin.Enabled {
		return NewNoopService()
	}
	if strings.TrimSpace(cfg.Jellyfin.URL) == "" || strings.TrimSpace(cfg.Jellyfin.APIKey) == "" {
		return NewNoopService()
	}
	return NewHTTPService(cfg.Jellyfin.URL, cfg.Jellyfin.APIKey, &http.Client{Timeout: 10 * time.Second})
}

// NewHTTPService constructs an HTTP-backed Jellyfin service.
func NewHTTPService(baseURL, apiKey string, client HTTPDoer) Service {
	return &httpService{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  client,
	}
}

type mediaUpdate struct {
	Path       string `json:"Path"`
	UpdateType string `json:"UpdateType"`
}

// Refresh reports path as created so Jellyfin scans only its folder. Servers
// that reject the targeted endpoint get a full library refresh instead.
func (s *httpService) Refresh(ctx context.Context, path string) error {
	body, err := json.Marshal(map[string][]mediaUpdate{
		"Updates": {{Path: path, UpdateType: "Created"}},
	})
	if err != nil {
		return fmt.Errorf("encode jellyfin media update: %w", err)
	}
	err = s.post(ctx, "/Library/Media/Updated", body, path)
	if err == nil || errors.Is(err, services.ErrConfiguration) {
		return err
	}
	return s.post(ctx, "/Library/Refresh", nil, path)
}

func (s *httpService) post(ctx context.Context, endpoint string, body []byte, path string) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("build jellyfin request: %w", err)
	}
	req.Header.Set("X-Emby-Token", s.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "jellyfin", "refresh", path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, "jellyfin", "refresh", "api key rejected", fmt.Errorf("status %d", resp.StatusCode))
	default:
		return services.Wrap(services.ErrTransient, "jellyfin", "refresh", endpoint+" for "+path, fmt.Errorf("status %d", resp.StatusCode))
	}
}
