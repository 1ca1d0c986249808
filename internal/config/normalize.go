package config

import (
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"

	"mmt/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFFmpeg()
	c.normalizeCodecs()
	c.normalizeLanguages()
	c.normalizeHWAccel()
	if err := c.normalizePermissions(); err != nil {
		return err
	}
	if err := c.normalizePostProcess(); err != nil {
		return err
	}
	c.normalizeIntegrations()
	if err := c.normalizeWatch(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Output.MoveTo, err = expandPath(strings.TrimSpace(c.Output.MoveTo)); err != nil {
		return fmt.Errorf("output.move_to: %w", err)
	}
	if c.Metrics.Textfile, err = expandPath(strings.TrimSpace(c.Metrics.Textfile)); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	c.Paths.IgnoredExtensions = normalizeExtensions(c.Paths.IgnoredExtensions)
	return nil
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = defaultFFmpegBinary
	}
	c.FFmpeg.ProbeBinary = strings.TrimSpace(c.FFmpeg.ProbeBinary)
	if c.FFmpeg.ProbeBinary == "" {
		c.FFmpeg.ProbeBinary = defaultFFprobeBinary
	}
	if c.FFmpeg.Threads == 0 {
		c.FFmpeg.Threads = logicalCPUs()
	}
}

func logicalCPUs() int {
	if count, err := cpu.Counts(true); err == nil && count > 0 {
		return count
	}
	return runtime.NumCPU()
}

func (c *Config) normalizeCodecs() {
	c.Video.Codec = strings.ToLower(strings.TrimSpace(c.Video.Codec))
	c.Video.Container = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Video.Container), "."))
	c.Video.Preset = strings.TrimSpace(c.Video.Preset)
	c.Video.Tune = strings.TrimSpace(c.Video.Tune)
	c.Audio.Codec = strings.ToLower(strings.TrimSpace(c.Audio.Codec))
	c.Subtitles.Codec = strings.ToLower(strings.TrimSpace(c.Subtitles.Codec))
	c.Subtitles.RipCodec = strings.ToLower(strings.TrimSpace(c.Subtitles.RipCodec))
	c.Subtitles.AttachmentCodecs = lowerList(c.Subtitles.AttachmentCodecs)
}

func (c *Config) normalizeLanguages() {
	c.Audio.DefaultLanguage = language.Normalize(c.Audio.DefaultLanguage, defaultLanguage)
	c.Subtitles.DefaultLanguage = language.Normalize(c.Subtitles.DefaultLanguage, c.Audio.DefaultLanguage)
	c.Audio.Languages = language.NormalizeList(c.Audio.Languages)
	c.Audio.Blocked = language.NormalizeList(c.Audio.Blocked)
	c.Subtitles.Languages = language.NormalizeList(c.Subtitles.Languages)
	c.Subtitles.Blocked = language.NormalizeList(c.Subtitles.Blocked)
	c.Subtitles.DownloadLanguages = language.NormalizeList(c.Subtitles.DownloadLanguages)
}

func (c *Config) normalizeHWAccel() {
	c.HWAccel.Accels = lowerList(c.HWAccel.Accels)
	c.HWAccel.Decoders = lowerList(c.HWAccel.Decoders)
	c.HWAccel.Devices = lowerKeys(c.HWAccel.Devices)
	c.HWAccel.OutputFormats = lowerKeys(c.HWAccel.OutputFormats)
}

func (c *Config) normalizePermissions() error {
	chmod := strings.TrimSpace(c.Permissions.Chmod)
	if chmod == "" {
		chmod = defaultChmod
	}
	mode, err := strconv.ParseUint(chmod, 8, 32)
	if err != nil {
		return fmt.Errorf("permissions.chmod must be an octal mode: %w", err)
	}
	c.Permissions.Chmod = chmod
	c.Permissions.Mode = fs.FileMode(mode)
	return nil
}

func (c *Config) normalizePostProcess() error {
	scripts := make([]string, 0, len(c.PostProcess.Scripts))
	for _, script := range c.PostProcess.Scripts {
		script = strings.TrimSpace(script)
		if script == "" {
			continue
		}
		expanded, err := expandPath(script)
		if err != nil {
			return fmt.Errorf("post_process.scripts: %w", err)
		}
		scripts = append(scripts, expanded)
	}
	c.PostProcess.Scripts = scripts
	return nil
}

func (c *Config) normalizeIntegrations() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}

	c.Plex.URL = strings.TrimRight(strings.TrimSpace(c.Plex.URL), "/")
	c.Plex.Token = envFallback(c.Plex.Token, "MMT_PLEX_TOKEN")
	c.Jellyfin.URL = strings.TrimRight(strings.TrimSpace(c.Jellyfin.URL), "/")
	c.Jellyfin.APIKey = envFallback(c.Jellyfin.APIKey, "MMT_JELLYFIN_API_KEY")
	c.Radarr.URL = strings.TrimRight(strings.TrimSpace(c.Radarr.URL), "/")
	c.Radarr.APIKey = envFallback(c.Radarr.APIKey, "MMT_RADARR_API_KEY")
	c.TMDB.APIKey = envFallback(c.TMDB.APIKey, "MMT_TMDB_API_KEY")
	c.TMDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.BaseURL), "/")
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)

	c.Subtitles.OpenSubtitlesAPIKey = envFallback(c.Subtitles.OpenSubtitlesAPIKey, "MMT_OPENSUBTITLES_API_KEY")
	c.Subtitles.OpenSubtitlesUserAgent = strings.TrimSpace(c.Subtitles.OpenSubtitlesUserAgent)
	if c.Subtitles.OpenSubtitlesUserAgent == "" {
		c.Subtitles.OpenSubtitlesUserAgent = defaultOpenSubtitlesUserAgent
	}

	c.Metrics.Listen = strings.TrimSpace(c.Metrics.Listen)
}

func (c *Config) normalizeWatch() error {
	dirs := make([]string, 0, len(c.Watch.Dirs))
	for _, dir := range c.Watch.Dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		expanded, err := expandPath(strings.TrimSpace(dir))
		if err != nil {
			return fmt.Errorf("watch.dirs: %w", err)
		}
		dirs = append(dirs, expanded)
	}
	c.Watch.Dirs = dirs
	c.Watch.Extensions = normalizeExtensions(c.Watch.Extensions)
	if c.Watch.SettleSeconds <= 0 {
		c.Watch.SettleSeconds = defaultWatchSettleSeconds
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func envFallback(value, key string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	if env, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(env)
	}
	return ""
}

func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(value), "."))
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func lowerList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.ToLower(strings.TrimSpace(value)); value != "" {
			out = append(out, value)
		}
	}
	return out
}

func lowerKeys(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for key, value := range values {
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
