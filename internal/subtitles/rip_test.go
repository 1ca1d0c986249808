package subtitles

import (
	"path/filepath"
	"testing"
)

func TestRipPathNumbersCollisions(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join("/media", "Movie.mkv")

	first := RipPath(source, dir, "eng", true, "srt")
	if first != filepath.Join(dir, "Movie.eng.forced.srt") {
		t.Fatalf("unexpected first path %s", first)
	}
	touch(t, dir, "Movie.eng.forced.srt")
	second := RipPath(source, dir, "eng", true, "srt")
	if second != filepath.Join(dir, "Movie.eng.forced.2.srt") {
		t.Fatalf("unexpected second path %s", second)
	}
	touch(t, dir, "Movie.eng.forced.2.srt")
	if third := RipPath(source, dir, "eng", true, "srt"); third != filepath.Join(dir, "Movie.eng.forced.3.srt") {
		t.Fatalf("unexpected third path %s", third)
	}
}

func TestExtension(t *testing.T) {
	tests := map[string]string{"subrip": "srt", "ASS": "ass", "webvtt": "vtt", "hdmv_pgs_subtitle": "sup", "dvd_subtitle": ""}
	for codec, want := range tests {
		if got := Extension(codec); got != want {
			t.Errorf("Extension(%q) = %q, want %q", codec, got, want)
		}
	}
}
