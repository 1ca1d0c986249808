package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mmt/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if want := filepath.Join(tempHome, ".local", "share", "mmt", "logs"); cfg.Paths.LogDir != want {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, want)
	}
	if want := filepath.Join(tempHome, ".local", "share", "mmt", "history.db"); cfg.HistoryPath() != want {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
	if cfg.FFmpeg.Threads <= 0 {
		t.Fatalf("expected threads resolved to CPU count, got %d", cfg.FFmpeg.Threads)
	}
	if cfg.Permissions.Mode != 0o644 {
		t.Fatalf("expected chmod 0644, got %o", cfg.Permissions.Mode)
	}
	if cfg.Audio.DefaultLanguage != "eng" || len(cfg.Audio.Languages) != 1 || cfg.Audio.Languages[0] != "eng" {
		t.Fatalf("unexpected audio languages: %q %v", cfg.Audio.DefaultLanguage, cfg.Audio.Languages)
	}
	if !cfg.IsIgnoredExtension(".NFO") {
		t.Fatal("expected nfo to be ignored")
	}
	if cfg.Video.MultiBitrate {
		t.Fatal("expected single tier output by default")
	}
}

func TestLoadFileOverridesAndNormalizes(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[video]
container = ".MP4"
multi_bitrate = true

[audio]
languages = ["en", "French", "deu"]
blocked = ["ja"]
default_language = "fre"

[hwaccel]
accels = ["VAAPI"]

[permissions]
chmod = "0640"

[plex]
refresh = true
url = "http://plex.local:32400/"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MMT_PLEX_TOKEN", "plex-token")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected file to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Video.Container != "mp4" || !cfg.Video.MultiBitrate {
		t.Fatalf("unexpected video config: %+v", cfg.Video)
	}
	if got := strings.Join(cfg.Audio.Languages, ","); got != "eng,fra,deu" {
		t.Fatalf("unexpected normalized languages %q", got)
	}
	if got := strings.Join(cfg.Audio.Blocked, ","); got != "jpn" {
		t.Fatalf("unexpected blocked languages %q", got)
	}
	if cfg.Audio.DefaultLanguage != "fra" {
		t.Fatalf("expected fra default language, got %q", cfg.Audio.DefaultLanguage)
	}
	if cfg.HWAccel.Accels[0] != "vaapi" {
		t.Fatalf("expected lowercased accel, got %v", cfg.HWAccel.Accels)
	}
	if cfg.Permissions.Mode != 0o640 {
		t.Fatalf("expected mode 0640, got %o", cfg.Permissions.Mode)
	}
	if cfg.Plex.URL != "http://plex.local:32400" || cfg.Plex.Token != "plex-token" {
		t.Fatalf("unexpected plex config: %+v", cfg.Plex)
	}
}

func TestValidateRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"container", func(c *config.Config) { c.Video.Container = "avi" }, "video.container"},
		{"crf", func(c *config.Config) { c.Video.CRF = 60 }, "video.crf"},
		{"channels", func(c *config.Config) { c.Audio.MaxChannels = 0 }, "audio.max_channels"},
		{"overlap", func(c *config.Config) { c.Audio.Blocked = []string{"eng"} }, "audio.languages and audio.blocked"},
		{"download key", func(c *config.Config) { c.Subtitles.Download = true }, "subtitles.opensubtitles_api_key"},
		{"jellyfin", func(c *config.Config) { c.Jellyfin.Enabled = true }, "jellyfin.url"},
		{"radarr key", func(c *config.Config) { c.Radarr.Rescan = true; c.Radarr.URL = "http://r" }, "radarr.api_key"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.StateDir = t.TempDir()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}

func TestLoadRejectsBadChmod(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[permissions]\nchmod = \"rw-r--r--\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "permissions.chmod") {
		t.Fatalf("expected chmod error, got %v", err)
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.HWAccel.Devices["vaapi"] != "/dev/dri/renderD128" {
		t.Fatalf("unexpected vaapi device: %v", cfg.HWAccel.Devices)
	}
	if cfg.Radarr.URL != "http://127.0.0.1:7878" {
		t.Fatalf("unexpected radarr url %q", cfg.Radarr.URL)
	}
}
