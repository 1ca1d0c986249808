package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and source-filter configuration.
type Paths struct {
	LogDir            string   `toml:"log_dir"`
	StateDir          string   `toml:"state_dir"`
	OutputDir         string   `toml:"output_dir"`
	MinSourceBytes    int64    `toml:"min_source_bytes"`
	IgnoredExtensions []string `toml:"ignored_extensions"`
}

// FFmpeg locates the encoder and prober executables.
type FFmpeg struct {
	Binary      string `toml:"binary"`
	ProbeBinary string `toml:"probe_binary"`
	// Threads is passed to -threads; 0 resolves to the logical CPU count.
	Threads int `toml:"threads"`
}

// Video contains per-tier video encoding settings.
type Video struct {
	Codec        string `toml:"codec"`
	Container    string `toml:"container"`
	CRF          int    `toml:"crf"`
	Preset       string `toml:"preset"`
	Tune         string `toml:"tune"`
	Deinterlace  bool   `toml:"deinterlace"`
	MultiBitrate bool   `toml:"multi_bitrate"`
}

// Audio contains audio track selection and encoding settings.
type Audio struct {
	Codec           string   `toml:"codec"`
	Languages       []string `toml:"languages"`
	Blocked         []string `toml:"blocked"`
	DefaultLanguage string   `toml:"default_language"`
	MaxChannels     int      `toml:"max_channels"`
	Companion       bool     `toml:"companion"`
	IgnoreTrueHD    bool     `toml:"ignore_truehd"`
}

// Subtitles contains subtitle selection, import, rip, and download settings.
type Subtitles struct {
	Codec                  string   `toml:"codec"`
	Languages              []string `toml:"languages"`
	Blocked                []string `toml:"blocked"`
	DefaultLanguage        string   `toml:"default_language"`
	Embed                  bool     `toml:"embed"`
	Rip                    bool     `toml:"rip"`
	RipCodec               string   `toml:"rip_codec"`
	ImportExternal         bool     `toml:"import_external"`
	DeleteImported         bool     `toml:"delete_imported"`
	AttachmentCodecs       []string `toml:"attachment_codecs"`
	Download               bool     `toml:"download"`
	DownloadLanguages      []string `toml:"download_languages"`
	OpenSubtitlesAPIKey    string   `toml:"opensubtitles_api_key"`
	OpenSubtitlesUserAgent string   `toml:"opensubtitles_user_agent"`
}

// HWAccel contains hardware acceleration preferences. Devices and
// OutputFormats are keyed by accelerator name (e.g. "vaapi").
type HWAccel struct {
	Accels        []string          `toml:"accels"`
	Decoders      []string          `toml:"decoders"`
	Devices       map[string]string `toml:"devices"`
	OutputFormats map[string]string `toml:"output_formats"`
}

// Output controls where finished files land and how sources are retired.
type Output struct {
	MoveTo             string `toml:"move_to"`
	DeleteOriginal     bool   `toml:"delete_original"`
	MinFreeGiB         int    `toml:"min_free_gib"`
	RemoveRetries      int    `toml:"remove_retries"`
	RemoveDelaySeconds int    `toml:"remove_delay_seconds"`
}

// Permissions are applied to every finished output.
type Permissions struct {
	Chmod string      `toml:"chmod"`
	UID   int         `toml:"uid"`
	GID   int         `toml:"gid"`
	Mode  fs.FileMode `toml:"-"`
}

// PostProcess lists executables run after a file completes.
type PostProcess struct {
	Scripts []string `toml:"scripts"`
	Wait    bool     `toml:"wait"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Started        bool   `toml:"started"`
	TierCompleted  bool   `toml:"tier_completed"`
	Completed      bool   `toml:"completed"`
	Errors         bool   `toml:"errors"`
}

// Plex contains configuration for Plex library refreshes.
type Plex struct {
	Refresh bool   `toml:"refresh"`
	URL     string `toml:"url"`
	Token   string `toml:"token"`
}

// Jellyfin contains configuration for Jellyfin Media Server integration.
type Jellyfin struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
	APIKey  string `toml:"api_key"`
}

// Radarr contains configuration for Radarr rescans.
type Radarr struct {
	Rescan bool   `toml:"rescan"`
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
}

// TMDB configures the metadata lookup used for tagging when a TMDB id is
// supplied without a title.
type TMDB struct {
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	Language string `toml:"language"`
}

// Metrics controls Prometheus exposition.
type Metrics struct {
	Textfile string `toml:"textfile"`
	Listen   string `toml:"listen"`
}

// Watch configures the directory watcher.
type Watch struct {
	Dirs          []string `toml:"dirs"`
	Extensions    []string `toml:"extensions"`
	SettleSeconds int      `toml:"settle_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mmt.
//
// Configuration sections by subsystem:
//   - Paths: log/state/output directories and source filters
//   - FFmpeg: encoder and prober binaries
//   - Video, Audio, Subtitles: option derivation policy
//   - HWAccel: hardware acceleration preferences
//   - Output, Permissions: placement of finished files
//   - PostProcess: user scripts
//   - Notifications, Plex, Jellyfin, Radarr: downstream systems
//   - TMDB: tag metadata lookup
//   - Metrics, Watch, Logging: operation
type Config struct {
	Paths         Paths         `toml:"paths"`
	FFmpeg        FFmpeg        `toml:"ffmpeg"`
	Video         Video         `toml:"video"`
	Audio         Audio         `toml:"audio"`
	Subtitles     Subtitles     `toml:"subtitles"`
	HWAccel       HWAccel       `toml:"hwaccel"`
	Output        Output        `toml:"output"`
	Permissions   Permissions   `toml:"permissions"`
	PostProcess   PostProcess   `toml:"post_process"`
	Notifications Notifications `toml:"notifications"`
	Plex          Plex          `toml:"plex"`
	Jellyfin      Jellyfin      `toml:"jellyfin"`
	Radarr        Radarr        `toml:"radarr"`
	TMDB          TMDB          `toml:"tmdb"`
	Metrics       Metrics       `toml:"metrics"`
	Watch         Watch         `toml:"watch"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mmt.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log and state directories. The output and
// move-to directories are created on demand by the reconciler.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the location of the processed-file history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the watch-mode single instance lock.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "mmt.lock")
}

// IsIgnoredExtension reports whether files with ext are never treated as sources.
func (c *Config) IsIgnoredExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	for _, ignored := range c.Paths.IgnoredExtensions {
		if ext == ignored {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
