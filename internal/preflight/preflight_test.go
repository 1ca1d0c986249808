package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"mmt/internal/config"
	"mmt/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if r := CheckFreeSpace("out", dir, 0); !r.Passed || r.Warning {
		t.Fatalf("zero threshold should pass cleanly: %+v", r)
	}
	if r := CheckFreeSpace("out", dir, 1<<30); !r.Passed || !r.Warning {
		t.Fatalf("huge threshold should warn without failing: %+v", r)
	}
}

func TestRemoteChecks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/Users" && r.Header.Get("X-Emby-Token") == "good-key":
		case r.URL.Path == "/library/sections" && r.Header.Get("X-Plex-Token") == "good-key":
		case r.URL.Path == "/api/v3/system/status" && r.Header.Get("X-Api-Key") == "good-key":
		default:
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx := context.Background()
	for name, check := range map[string]func(context.Context, string, string) Result{
		"jellyfin": CheckJellyfin,
		"plex":     CheckPlex,
		"radarr":   CheckRadarr,
	} {
		if r := check(ctx, srv.URL, "good-key"); !r.Passed {
			t.Errorf("%s: expected pass, got %s", name, r.Detail)
		}
		if r := check(ctx, srv.URL, "bad-key"); r.Passed {
			t.Errorf("%s: expected auth failure", name)
		}
		if r := check(ctx, "", "good-key"); r.Passed {
			t.Errorf("%s: expected failure for missing url", name)
		}
		if r := check(ctx, srv.URL, ""); r.Passed {
			t.Errorf("%s: expected failure for missing key", name)
		}
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestLocalWithStubbedBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Paths.OutputDir = t.TempDir()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	results := Local(context.Background(), cfg)
	if failed := Failures(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
	names := map[string]bool{}
	for _, r := range results {
		names[r.Name] = true
	}
	for _, want := range []string{"FFmpeg", "FFprobe", "State directory", "Output directory"} {
		if !names[want] {
			t.Errorf("missing %s check in %+v", want, results)
		}
	}
}

func TestLocalReportsMissingBinary(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.FFmpeg.Binary = "definitely-not-ffmpeg"
	failed := Failures(Local(context.Background(), &cfg))
	if len(failed) == 0 || failed[0].Name != "FFmpeg" {
		t.Fatalf("expected ffmpeg failure, got %+v", failed)
	}
}

func TestRemoteSkipsDisabled(t *testing.T) {
	cfg := config.Default()
	if results := Remote(context.Background(), &cfg); len(results) != 0 {
		t.Fatalf("expected no remote checks, got %+v", results)
	}
}
