package config

import (
	"errors"
	"fmt"
	"strings"
)

var supportedContainers = map[string]struct{}{
	"mp4": {},
	"m4v": {},
	"mov": {},
	"mkv": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateIntegrations(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.MinSourceBytes < 0 {
		return errors.New("paths.min_source_bytes must be zero or positive")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.Codec == "" {
		return errors.New("video.codec must be set")
	}
	if _, ok := supportedContainers[c.Video.Container]; !ok {
		return fmt.Errorf("video.container must be one of mp4, m4v, mov, mkv (got %q)", c.Video.Container)
	}
	if c.Video.CRF < 0 || c.Video.CRF > 51 {
		return errors.New("video.crf must be between 0 and 51")
	}
	if c.FFmpeg.Threads < 0 {
		return errors.New("ffmpeg.threads must be zero or positive")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.Codec == "" {
		return errors.New("audio.codec must be set")
	}
	if c.Audio.MaxChannels < 1 || c.Audio.MaxChannels > 6 {
		return errors.New("audio.max_channels must be between 1 and 6")
	}
	for _, lang := range c.Audio.Languages {
		if containsString(c.Audio.Blocked, lang) {
			return fmt.Errorf("audio.languages and audio.blocked both contain %q", lang)
		}
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	if c.Subtitles.Embed && c.Subtitles.Codec == "" {
		return errors.New("subtitles.codec must be set when subtitles.embed is enabled")
	}
	if c.Subtitles.Rip && c.Subtitles.RipCodec == "" {
		return errors.New("subtitles.rip_codec must be set when subtitles.rip is enabled")
	}
	if c.Subtitles.Download && c.Subtitles.OpenSubtitlesAPIKey == "" {
		return errors.New("subtitles.opensubtitles_api_key must be set when subtitles.download is enabled (or export MMT_OPENSUBTITLES_API_KEY)")
	}
	return nil
}

func (c *Config) validateOutput() error {
	if c.Output.RemoveRetries < 0 {
		return errors.New("output.remove_retries must be zero or positive")
	}
	if c.Output.RemoveDelaySeconds < 0 {
		return errors.New("output.remove_delay_seconds must be zero or positive")
	}
	if c.Output.MinFreeGiB < 0 {
		return errors.New("output.min_free_gib must be zero or positive")
	}
	if c.Permissions.Mode&^0o7777 != 0 {
		return errors.New("permissions.chmod must not exceed 7777")
	}
	return nil
}

func (c *Config) validateIntegrations() error {
	if c.Plex.Refresh {
		if c.Plex.URL == "" {
			return errors.New("plex.url must be set when plex.refresh is enabled")
		}
		if c.Plex.Token == "" {
			return errors.New("plex.token must be set when plex.refresh is enabled (or export MMT_PLEX_TOKEN)")
		}
	}
	if c.Jellyfin.Enabled {
		if c.Jellyfin.URL == "" {
			return errors.New("jellyfin.url must be set when jellyfin.enabled is true")
		}
		if c.Jellyfin.APIKey == "" {
			return errors.New("jellyfin.api_key must be set when jellyfin.enabled is true (or export MMT_JELLYFIN_API_KEY)")
		}
	}
	if c.Radarr.Rescan {
		if c.Radarr.URL == "" {
			return errors.New("radarr.url must be set when radarr.rescan is enabled")
		}
		if c.Radarr.APIKey == "" {
			return errors.New("radarr.api_key must be set when radarr.rescan is enabled (or export MMT_RADARR_API_KEY)")
		}
	}
	if c.Watch.SettleSeconds < 0 {
		return errors.New("watch.settle_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
