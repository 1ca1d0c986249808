package plex

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"mmt/internal/config"
	"mmt/internal/services"
)

const userAgent = "mmt/1.0"

// HTTPDoer describes the HTTP client used by the Plex service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type section struct {
	key       string
	locations []string
}

type httpService struct {
	baseURL string
	token   string
	client  HTTPDoer

	mu       sync.Mutex
	sections []section
}

// NewConfiguredService returns a Plex service that refreshes sections when
// plex.refresh is enabled with a URL and token.
func NewConfiguredService(cfg *config.Config) Service {
	if cfg == nil || !cfg.Plex.Refresh {
		return NewNoopService()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.Plex.URL), "/")
	token := strings.TrimSpace(cfg.Plex.Token)
	if baseURL == "" || token == "" {
		return NewNoopService()
	}
	return NewHTTPService(baseURL, token, &http.Client{Timeout: 10 * time.Second})
}

// NewHTTPService constructs an HTTP-backed Plex service.
func NewHTTPService(baseURL, token string, client HTTPDoer) Service {
	return &httpService{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		client:  client,
	}
}

func (s *httpService) Refresh(ctx context.Context, path string) error {
	sections, err := s.ensureSections(ctx)
	if err != nil {
		return err
	}
	key := "all"
	if match := matchSection(sections, path); match != "" {
		key = match
	}
	refreshURL := fmt.Sprintf("%s/library/sections/%s/refresh", s.baseURL, key)
	if key != "all" {
		refreshURL += "?path=" + url.QueryEscape(filepath.Dir(path))
	}
	resp, err := s.do(ctx, refreshURL)
	if err != nil {
		return services.Wrap(services.ErrTransient, "plex", "refresh", "section "+key, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (s *httpService) ensureSections(ctx context.Context) ([]section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sections != nil {
		return s.sections, nil
	}

	resp, err := s.do(ctx, s.baseURL+"/library/sections")
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "plex", "list sections", "", err)
	}
	defer resp.Body.Close()

	type location struct {
		Path string `xml:"path,attr"`
	}
	type directory struct {
		Key       string     `xml:"key,attr"`
		Title     string     `xml:"title,attr"`
		Locations []location `xml:"Location"`
	}
	type mediaContainer struct {
		Directories []directory `xml:"Directory"`
	}

	var container mediaContainer
	if err := xml.NewDecoder(resp.Body).Decode(&container); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "plex", "decode sections", "", err)
	}

	sections := make([]section, 0, len(container.Directories))
	for _, dir := range container.Directories {
		if dir.Key == "" {
			continue
		}
		entry := section{key: dir.Key}
		for _, loc := range dir.Locations {
			if loc.Path != "" {
				entry.locations = append(entry.locations, filepath.Clean(loc.Path))
			}
		}
		sections = append(sections, entry)
	}
	s.sections = sections
	return sections, nil
}

func (s *httpService) do(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Plex-Token", s.token)
	req.Header.Set("Accept", "application/xml")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

// matchSection returns the key of the section with the longest location
// containing path.
func matchSection(sections []section, path string) string {
	path = filepath.Clean(path)
	best, bestLen := "", 0
	for _, sec := range sections {
		for _, loc := range sec.locations {
			if (path == loc || strings.HasPrefix(path, loc+string(filepath.Separator))) && len(loc) > bestLen {
				best, bestLen = sec.key, len(loc)
			}
		}
	}
	return best
}
