package subtitles

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mmt/internal/logging"
	"mmt/internal/subtitles/opensubtitles"
)

type fakeSearchClient struct {
	results   map[string][]opensubtitles.Subtitle
	searched  []opensubtitles.SearchRequest
	failLang  string
	downloads []int64
	files     map[int64]string
}

func (f *fakeSearchClient) Search(_ context.Context, req opensubtitles.SearchRequest) ([]opensubtitles.Subtitle, error) {
	f.searched = append(f.searched, req)
	if len(req.Languages) == 1 && req.Languages[0] == f.failLang {
		return nil, errors.New("search failed (400 Bad Request)")
	}
	return f.results[req.Languages[0]], nil
}

func (f *fakeSearchClient) Download(_ context.Context, fileID int64) (opensubtitles.DownloadResult, error) {
	f.downloads = append(f.downloads, fileID)
	if body, ok := f.files[fileID]; ok {
		return opensubtitles.DownloadResult{Data: []byte(body)}, nil
	}
	return opensubtitles.DownloadResult{Data: []byte("1\n00:00:01,000 --> 00:00:02,000\nHi\n")}, nil
}

func writeVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Movie.mkv")
	if err := os.WriteFile(path, make([]byte, 256*1024), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return path
}

func TestDownloaderFetchesMissingLanguages(t *testing.T) {
	source := writeVideo(t)
	client := &fakeSearchClient{
		results: map[string][]opensubtitles.Subtitle{
			"fr": {
				{FileID: 1, Downloads: 500, Translated: true},
				{FileID: 2, Downloads: 10},
				{FileID: 3, Downloads: 5, MovieHashMatch: true},
			},
		},
		failLang: "de",
	}
	d := &Downloader{Client: client, Logger: logging.NewNop()}

	paths := d.Download(context.Background(), Request{
		Source:    source,
		Languages: []string{"eng", "fra", "deu", "spa"},
		Existing:  []string{"en"},
	})
	if len(paths) != 1 || filepath.Base(paths[0]) != "Movie.fra.srt" {
		t.Fatalf("unexpected paths %v", paths)
	}
	if len(client.downloads) != 1 || client.downloads[0] != 3 {
		t.Fatalf("expected hash match to win, downloads=%v", client.downloads)
	}
	if len(client.searched) != 3 {
		t.Fatalf("expected searches for fra, deu, spa only, got %d", len(client.searched))
	}
	if client.searched[0].MovieHash == "" {
		t.Fatal("expected movie hash in search")
	}
}

func TestNilDownloaderIsDisabled(t *testing.T) {
	var d *Downloader
	if paths := d.Download(context.Background(), Request{Source: "/x.mkv", Languages: []string{"eng"}}); paths != nil {
		t.Fatalf("expected nil, got %v", paths)
	}
	if NewDownloader("", "", nil) != nil {
		t.Fatal("expected nil downloader without api key")
	}
}

func TestDownloaderSkipsMismatchedFiles(t *testing.T) {
	source := writeVideo(t)
	client := &fakeSearchClient{
		results: map[string][]opensubtitles.Subtitle{
			"fr": {
				{FileID: 1, Downloads: 900, MovieHashMatch: true},
				{FileID: 2, Downloads: 50},
			},
		},
		files: map[int64]string{
			1: "1\n00:00:01,000 --> 02:30:00,000\nWrong cut\n",
			2: "1\n00:00:01,000 --> 00:00:03,000\nwww.opensubtitles.org\n\n" +
				"2\n01:59:50,000 --> 01:59:55,000\nFin.\n",
		},
	}
	d := &Downloader{Client: client, Logger: logging.NewNop()}

	paths := d.Download(context.Background(), Request{
		Source:    source,
		Languages: []string{"fra"},
		Duration:  7200,
	})
	if len(paths) != 1 {
		t.Fatalf("paths = %v, want one", paths)
	}
	if len(client.downloads) != 2 || client.downloads[1] != 2 {
		t.Fatalf("downloads = %v, want fallback to file 2", client.downloads)
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("read subtitle: %v", err)
	}
	if want := "1\n01:59:50,000 --> 01:59:55,000\nFin.\n"; string(data) != want {
		t.Fatalf("subtitle = %q, want %q", data, want)
	}
}
