package tmdb_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mmt/internal/services"
	"mmt/internal/services/tmdb"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := tmdb.New("", "https://example.com", "en-US"); err == nil {
		t.Fatal("expected error when api key missing")
	}
}

func TestMovieAndEpisode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "key" {
			t.Errorf("expected api_key query parameter, got %q", r.URL.RawQuery)
		}
		if r.URL.Query().Get("language") != "en-US" {
			t.Errorf("expected language parameter, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/movie/949":
			_, _ = w.Write([]byte(`{"id":949,"title":"Heat","release_date":"1995-12-15","overview":"Crime."}`))
		case "/tv/1399":
			_, _ = w.Write([]byte(`{"id":1399,"name":"Game of Thrones","first_air_date":"2011-04-17"}`))
		case "/tv/1399/season/1/episode/2":
			_, _ = w.Write([]byte(`{"id":63057,"name":"The Kingsroad","season_number":1,"episode_number":2,"air_date":"2011-04-24"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "en-US")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	movie, err := client.Movie(ctx, 949)
	if err != nil {
		t.Fatalf("Movie: %v", err)
	}
	if movie.DisplayTitle() != "Heat" || movie.Year() != 1995 {
		t.Fatalf("movie = %+v", movie)
	}

	show, err := client.Show(ctx, 1399)
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if show.DisplayTitle() != "Game of Thrones" || show.Year() != 2011 {
		t.Fatalf("show = %+v", show)
	}

	episode, err := client.Episode(ctx, 1399, 1, 2)
	if err != nil {
		t.Fatalf("Episode: %v", err)
	}
	if episode.Name != "The Kingsroad" || episode.Year() != 2011 {
		t.Fatalf("episode = %+v", episode)
	}

	if _, err := client.Movie(ctx, 1); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing movie err = %v, want ErrNotFound", err)
	}
}

func TestServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Movie(context.Background(), 5); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("err = %v, want ErrTransient", err)
	}
}

func TestRejectsInvalidIDs(t *testing.T) {
	client, err := tmdb.New("key", "https://example.com", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Movie(context.Background(), 0); err == nil {
		t.Fatal("expected error for zero movie id")
	}
	if _, err := client.Episode(context.Background(), 10, 1, 0); err == nil {
		t.Fatal("expected error for zero episode")
	}
}
