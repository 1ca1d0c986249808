package opensubtitles

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mmt/internal/services"
)

const (
	defaultBaseURL     = "https://api.opensubtitles.com/api/v1"
	defaultUserAgent   = "mmt v1"
	defaultHTTPTimeout = 45 * time.Second
)

// Config describes the OpenSubtitles client configuration.
type Config struct {
	APIKey     string
	UserAgent  string
	BaseURL    string
	HTTPClient *http.Client
}

// Client wraps the OpenSubtitles REST API.
type Client struct {
	apiKey    string
	userAgent string
	baseURL   *url.URL
	http      *http.Client
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "opensubtitles", "new client", "api key is required", nil)
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("opensubtitles: parse base url: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		apiKey:    apiKey,
		userAgent: userAgent,
		baseURL:   baseURL,
		http:      client,
	}, nil
}

// SearchRequest describes subtitle discovery filters. MovieHash is the
// OpenSubtitles file fingerprint produced by Hash.
type SearchRequest struct {
	MovieHash string
	TMDBID    int64
	IMDBID    string
	Query     string
	Languages []string
	Season    int
	Episode   int
}

// Subtitle represents a subtitle candidate returned by OpenSubtitles.
type Subtitle struct {
	ID              string
	FileID          int64
	Language        string
	Release         string
	Downloads       int
	HearingImpaired bool
	MovieHashMatch  bool
	Translated      bool
}

// DownloadResult captures the downloaded subtitle payload.
type DownloadResult struct {
	Data     []byte
	FileName string
	Language string
}

// Search lists subtitle files matching req, most downloaded first. Entries
// without a language or a file are dropped.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]Subtitle, error) {
	if c == nil {
		return nil, errors.New("opensubtitles: client is nil")
	}
	endpoint := c.baseURL.JoinPath("subtitles")
	endpoint.RawQuery = searchParams(req).Encode()

	var payload searchResponse
	if err := c.send(ctx, "search", http.MethodGet, endpoint.String(), nil, &payload); err != nil {
		return nil, err
	}
	subtitles := make([]Subtitle, 0, len(payload.Data))
	for _, entry := range payload.Data {
		attrs := entry.Attributes
		if attrs.Language == "" || len(attrs.Files) == 0 || attrs.Files[0].FileID == 0 {
			continue
		}
		subtitles = append(subtitles, Subtitle{
			ID:              entry.ID,
			FileID:          attrs.Files[0].FileID,
			Language:        attrs.Language,
			Release:         attrs.Release,
			Downloads:       attrs.DownloadCount,
			HearingImpaired: attrs.HearingImpaired,
			MovieHashMatch:  attrs.MovieHashMatch,
			Translated:      attrs.AITranslated || attrs.MachineTranslated,
		})
	}
	return subtitles, nil
}

func searchParams(req SearchRequest) url.Values {
	params := url.Values{}
	set := func(key, value string) {
		if value != "" {
			params.Set(key, value)
		}
	}
	set("moviehash", strings.TrimSpace(req.MovieHash))
	set("imdb_id", sanitizeIMDBID(req.IMDBID))
	set("query", req.Query)
	set("languages", strings.Join(req.Languages, ","))
	if req.TMDBID > 0 {
		params.Set("tmdb_id", strconv.FormatInt(req.TMDBID, 10))
	}
	if req.Season > 0 {
		params.Set("season_number", strconv.Itoa(req.Season))
	}
	if req.Episode > 0 {
		params.Set("episode_number", strconv.Itoa(req.Episode))
	}
	params.Set("order_by", "download_count")
	params.Set("order_direction", "desc")
	return params
}

// Download negotiates a temporary link for fileID and fetches its srt body.
func (c *Client) Download(ctx context.Context, fileID int64) (DownloadResult, error) {
	if c == nil {
		return DownloadResult{}, errors.New("opensubtitles: client is nil")
	}
	if fileID <= 0 {
		return DownloadResult{}, services.Wrap(services.ErrValidation, "opensubtitles", "download", fmt.Sprintf("invalid file id %d", fileID), nil)
	}
	body, err := json.Marshal(map[string]any{"file_id": fileID, "sub_format": "srt"})
	if err != nil {
		return DownloadResult{}, fmt.Errorf("opensubtitles: encode download request: %w", err)
	}
	endpoint := c.baseURL.JoinPath("download")
	var info downloadResponse
	if err := c.send(ctx, "download", http.MethodPost, endpoint.String(), body, &info); err != nil {
		return DownloadResult{}, err
	}
	if info.Link == "" {
		return DownloadResult{}, services.Wrap(services.ErrExternalTool, "opensubtitles", "download", "response missing link", nil)
	}
	link, err := endpoint.Parse(info.Link)
	if err != nil {
		return DownloadResult{}, services.Wrap(services.ErrExternalTool, "opensubtitles", "download", "unparseable link", err)
	}

	var data []byte
	if err := c.send(ctx, "fetch", http.MethodGet, link.String(), nil, &data); err != nil {
		return DownloadResult{}, err
	}
	return DownloadResult{Data: data, FileName: info.FileName, Language: info.Language}, nil
}

// send performs one API call. out is either *[]byte for the raw body or a
// value decoded as JSON. 429 and 5xx responses and transport failures are
// marked transient so Retry can back off.
func (c *Client) send(ctx context.Context, op, method, target string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("opensubtitles: build %s request: %w", op, err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "opensubtitles", op, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := fmt.Sprintf("%s: %s", resp.Status, strings.TrimSpace(string(snippet)))
		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return services.Wrap(services.ErrTransient, "opensubtitles", op, msg, nil)
		case resp.StatusCode == http.StatusNotFound:
			return services.Wrap(services.ErrNotFound, "opensubtitles", op, msg, nil)
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, "opensubtitles", op, msg, nil)
		default:
			return services.Wrap(services.ErrExternalTool, "opensubtitles", op, msg, nil)
		}
	}

	if raw, ok := out.(*[]byte); ok {
		*raw, err = io.ReadAll(resp.Body)
		if err != nil {
			return services.Wrap(services.ErrTransient, "opensubtitles", op, "read body", err)
		}
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrExternalTool, "opensubtitles", op, "decode response", err)
	}
	return nil
}

func sanitizeIMDBID(value string) string {
	value = strings.TrimPrefix(strings.TrimSpace(value), "tt")
	if value == "" {
		return ""
	}
	if _, err := strconv.ParseInt(value, 10, 64); err != nil {
		return ""
	}
	return value
}

type searchResponse struct {
	Data []struct {
		ID         string           `json:"id"`
		Attributes searchAttributes `json:"attributes"`
	} `json:"data"`
}

type searchAttributes struct {
	Language          string `json:"language"`
	Release           string `json:"release"`
	DownloadCount     int    `json:"download_count"`
	HearingImpaired   bool   `json:"hearing_impaired"`
	MovieHashMatch    bool   `json:"moviehash_match"`
	AITranslated      bool   `json:"ai_translated"`
	MachineTranslated bool   `json:"machine_translated"`
	Files             []struct {
		FileID int64 `json:"file_id"`
	} `json:"files"`
}

type downloadResponse struct {
	Link     string `json:"link"`
	FileName string `json:"file_name"`
	Language string `json:"language"`
}
