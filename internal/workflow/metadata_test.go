package workflow

import (
	"context"
	"errors"
	"testing"

	"mmt/internal/logging"
	"mmt/internal/services/tmdb"
	"mmt/internal/testsupport"
)

type fakeMetadata struct {
	movies   map[int64]tmdb.Details
	episodes map[int64]tmdb.Episode
	err      error
}

func (f fakeMetadata) Movie(_ context.Context, id int64) (tmdb.Details, error) {
	if f.err != nil {
		return tmdb.Details{}, f.err
	}
	return f.movies[id], nil
}

func (f fakeMetadata) Show(_ context.Context, id int64) (tmdb.Details, error) {
	if f.err != nil {
		return tmdb.Details{}, f.err
	}
	return tmdb.Details{ID: id, Name: "Show"}, nil
}

func (f fakeMetadata) Episode(_ context.Context, showID int64, _, _ int) (tmdb.Episode, error) {
	if f.err != nil {
		return tmdb.Episode{}, f.err
	}
	return f.episodes[showID], nil
}

func TestLookupMetadata(t *testing.T) {
	source := fakeMetadata{
		movies:   map[int64]tmdb.Details{949: {ID: 949, Title: "Heat", ReleaseDate: "1995-12-15"}},
		episodes: map[int64]tmdb.Episode{1399: {Name: "The Kingsroad", AirDate: "2011-04-24"}},
	}

	tests := []struct {
		name      string
		meta      MetadataSource
		req       Request
		wantTitle string
		wantYear  int
	}{
		{"movie", source, Request{TMDBID: 949}, "Heat", 1995},
		{"episode", source, Request{TMDBID: 1399, Season: 1, Episode: 2}, "The Kingsroad", 2011},
		{"explicit title kept", source, Request{TMDBID: 949, Title: "Mine"}, "Mine", 0},
		{"no id", source, Request{}, "", 0},
		{"lookup failure", fakeMetadata{err: errors.New("boom")}, Request{TMDBID: 949}, "", 0},
		{"disabled", nil, Request{TMDBID: 949}, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(testsupport.NewConfig(t), logging.NewNop(), WithMetadataSource(tt.meta))
			got := p.lookupMetadata(context.Background(), logging.NewNop(), tt.req)
			if got.Title != tt.wantTitle || got.Year != tt.wantYear {
				t.Fatalf("got %q (%d), want %q (%d)", got.Title, got.Year, tt.wantTitle, tt.wantYear)
			}
		})
	}
}
