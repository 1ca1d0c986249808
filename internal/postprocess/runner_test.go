package postprocess

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mmt/internal/config"
	"mmt/internal/logging"
	"mmt/internal/testsupport"
)

func TestEnvVars(t *testing.T) {
	vars := Env{Files: []string{"/out/a.mp4", "/out/b.mp4"}, TMDBID: "603", Season: 1, Episode: 2}.Vars()
	want := []string{
		`MMT_FILES=["/out/a.mp4","/out/b.mp4"]`,
		"MMT_TMDBID=603",
		"MMT_SEASON=1",
		"MMT_EPISODE=2",
	}
	if strings.Join(vars, "|") != strings.Join(want, "|") {
		t.Fatalf("vars = %v", vars)
	}
	if got := (Env{}).Vars(); len(got) != 1 || got[0] != "MMT_FILES=[]" {
		t.Fatalf("empty env = %v", got)
	}
}

func TestScriptsExpandsDirectories(t *testing.T) {
	dir := t.TempDir()
	scriptsDir := filepath.Join(dir, "post")
	testsupport.StubBinary(t, scriptsDir, "20-second", "exit 0\n")
	testsupport.StubBinary(t, scriptsDir, "10-first", "exit 0\n")
	testsupport.StubBinary(t, scriptsDir, "README.md", "")
	if err := os.WriteFile(filepath.Join(scriptsDir, "notes"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	single := testsupport.StubBinary(t, dir, "single", "exit 0\n")

	r := New(config.PostProcess{Scripts: []string{single, scriptsDir, filepath.Join(dir, "missing")}}, logging.NewNop())
	got := r.Scripts()
	want := []string{single, filepath.Join(scriptsDir, "10-first"), filepath.Join(scriptsDir, "20-second")}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("Scripts() = %v, want %v", got, want)
	}
}

func TestRunPassesEnvironment(t *testing.T) {
	dir := t.TempDir()
	record := filepath.Join(dir, "record.txt")
	script := testsupport.StubBinary(t, dir, "record", "printf '%s|%s|%s' \"$MMT_FILES\" \"$MMT_TMDBID\" \"$MMT_SEASON\" > "+record+"\n")
	failing := testsupport.StubBinary(t, dir, "fail", "exit 3\n")

	r := New(config.PostProcess{Scripts: []string{script, failing}, Wait: true}, logging.NewNop())
	failures := r.Run(context.Background(), Env{Files: []string{"/out/movie.mp4"}, TMDBID: "42", Season: 3})
	if failures != 1 {
		t.Fatalf("failures = %d, want 1", failures)
	}
	data, err := os.ReadFile(record)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["/out/movie.mp4"]|42|3` {
		t.Fatalf("script saw %q", data)
	}
}
