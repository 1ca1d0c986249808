package subtitles

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	source := touch(t, dir, "Movie (2020).mkv")
	touch(t, dir, "Movie (2020).eng.srt")
	touch(t, dir, "Movie (2020).fr.forced.srt")
	touch(t, dir, "Movie (2020).sdh.srt")
	touch(t, dir, "Movie (2020).spa.sub")
	touch(t, dir, "Movie (2020).spa.idx")
	touch(t, dir, "Movie (2020).nfo")
	touch(t, dir, "Movie (2020) Extras.eng.srt")
	touch(t, dir, "Other.eng.srt")

	found, err := Discover(source, "eng")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	byName := map[string]External{}
	for _, ext := range found {
		byName[filepath.Base(ext.Path)] = ext
	}
	if len(found) != 4 {
		t.Fatalf("expected 4 sidecars, got %d: %+v", len(found), found)
	}
	if got := byName["Movie (2020).eng.srt"]; got.Language != "eng" || got.Disposition.Forced {
		t.Fatalf("unexpected eng sidecar %+v", got)
	}
	if got := byName["Movie (2020).fr.forced.srt"]; got.Language != "fra" || !got.Disposition.Forced {
		t.Fatalf("unexpected forced sidecar %+v", got)
	}
	if got := byName["Movie (2020).sdh.srt"]; got.Language != "eng" || !got.Disposition.HearingImpaired {
		t.Fatalf("expected fallback language and hearing impaired flag, got %+v", got)
	}
	if _, ok := byName["Movie (2020).spa.sub"]; ok {
		t.Fatal("sub with idx sibling should be skipped")
	}
	if _, ok := byName["Movie (2020).spa.idx"]; !ok {
		t.Fatal("expected idx sidecar")
	}
}

func TestDiscoverMissingDirectory(t *testing.T) {
	if _, err := Discover(filepath.Join(t.TempDir(), "gone", "movie.mkv"), "eng"); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
