package radarr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mmt/internal/config"
	"mmt/internal/services"
)

func newRadarr(t *testing.T, statuses []string, queuedBody *command) *Client {
	t.Helper()
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "radarr-key" {
			t.Errorf("missing api key")
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v3/movie":
			_ = json.NewEncoder(w).Encode([]movie{{ID: 7, Path: "/media/movies/Other"}, {ID: 42, Path: "/media/movies/Film (2020)"}})
		case r.Method == http.MethodPost && r.URL.Path == "/api/v3/command":
			if err := json.NewDecoder(r.Body).Decode(queuedBody); err != nil {
				t.Errorf("decode command: %v", err)
			}
			_ = json.NewEncoder(w).Encode(command{ID: 99, Name: "RescanMovie", Status: "queued"})
		case r.Method == http.MethodGet && r.URL.Path == "/api/v3/command/99":
			status := statuses[len(statuses)-1]
			if polls < len(statuses) {
				status = statuses[polls]
			}
			polls++
			_ = json.NewEncoder(w).Encode(command{ID: 99, Status: status})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	client := NewClient(server.URL+"/", "radarr-key", server.Client())
	client.PollAttempts = 3
	client.PollInterval = 0
	return client
}

func TestRefreshRescansOwningMovie(t *testing.T) {
	var queued command
	client := newRadarr(t, []string{"started", "completed"}, &queued)
	if err := client.Refresh(context.Background(), "/media/movies/Film (2020)/Film (2020).mp4"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if queued.Name != "RescanMovie" || queued.MovieID != 42 {
		t.Fatalf("unexpected command %+v", queued)
	}
}

func TestRefreshFailedCommand(t *testing.T) {
	var queued command
	client := newRadarr(t, []string{"failed"}, &queued)
	err := client.Refresh(context.Background(), "/elsewhere/film.mp4")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if queued.MovieID != 0 {
		t.Fatalf("unmatched path should rescan all movies, got id %d", queued.MovieID)
	}
}

func TestRefreshGivesUpAfterPolling(t *testing.T) {
	var queued command
	client := newRadarr(t, []string{"started"}, &queued)
	err := client.Refresh(context.Background(), "/media/movies/Film (2020)/a.mp4")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestNewConfiguredService(t *testing.T) {
	cfg := config.Default()
	if _, ok := NewConfiguredService(&cfg).(noopService); !ok {
		t.Fatal("expected noop when rescan disabled")
	}
	cfg.Radarr.Rescan = true
	cfg.Radarr.URL = "http://radarr.local:7878"
	cfg.Radarr.APIKey = "k"
	if _, ok := NewConfiguredService(&cfg).(*Client); !ok {
		t.Fatal("expected client")
	}
}
