package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mmt/internal/config"
	"mmt/internal/services"
)

// Details is the subset of a movie or show record used for tagging.
type Details struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	Overview     string `json:"overview"`
	ReleaseDate  string `json:"release_date"`
	FirstAirDate string `json:"first_air_date"`
}

// DisplayTitle returns the movie title or show name.
func (d Details) DisplayTitle() string {
	if strings.TrimSpace(d.Title) != "" {
		return strings.TrimSpace(d.Title)
	}
	return strings.TrimSpace(d.Name)
}

// Year parses the release or first air year, 0 when unknown.
func (d Details) Year() int {
	date := d.ReleaseDate
	if date == "" {
		date = d.FirstAirDate
	}
	return yearOf(date)
}

// Episode is one episode record.
type Episode struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Overview      string `json:"overview"`
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number"`
	AirDate       string `json:"air_date"`
}

// Year parses the air year, 0 when unknown.
func (e Episode) Year() int { return yearOf(e.AirDate) }

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

// Client talks to the TMDB API.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig returns nil when no API key is configured.
func NewFromConfig(cfg *config.Config) *Client {
	if cfg == nil {
		return nil
	}
	client, err := New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language)
	if err != nil {
		return nil
	}
	return client
}

// Movie fetches a movie by id.
func (c *Client) Movie(ctx context.Context, id int64) (Details, error) {
	var out Details
	if id <= 0 {
		return out, errors.New("movie id must be positive")
	}
	err := c.get(ctx, fmt.Sprintf("/movie/%d", id), &out)
	return out, err
}

// Show fetches a TV show by id.
func (c *Client) Show(ctx context.Context, id int64) (Details, error) {
	var out Details
	if id <= 0 {
		return out, errors.New("show id must be positive")
	}
	err := c.get(ctx, fmt.Sprintf("/tv/%d", id), &out)
	return out, err
}

// Episode fetches one episode of a show.
func (c *Client) Episode(ctx context.Context, showID int64, season, episode int) (Episode, error) {
	var out Episode
	if showID <= 0 || season < 0 || episode <= 0 {
		return out, fmt.Errorf("invalid episode reference %d S%02dE%02d", showID, season, episode)
	}
	err := c.get(ctx, fmt.Sprintf("/tv/%d/season/%d/episode/%d", showID, season, episode), &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse tmdb url: %w", err)
	}
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return services.Wrap(services.ErrTransient, "tmdb", "request", fmt.Sprintf("latency=%v", latency), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "tmdb", "request", path, nil)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return services.Wrap(services.ErrTransient, "tmdb", "request", fmt.Sprintf("%s returned %d", path, resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return services.Wrap(services.ErrExternalTool, "tmdb", "request", fmt.Sprintf("%s returned %d", path, resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
