package config

const (
	defaultConfigPath             = "~/.config/mmt/config.toml"
	defaultLogDir                 = "~/.local/share/mmt/logs"
	defaultStateDir               = "~/.local/share/mmt"
	defaultMinSourceBytes         = 95_000_000
	defaultFFmpegBinary           = "ffmpeg"
	defaultFFprobeBinary          = "ffprobe"
	defaultVideoCodec             = "h264"
	defaultContainer              = "mp4"
	defaultCRF                    = 22
	defaultPreset                 = "veryfast"
	defaultTune                   = "zerolatency"
	defaultAudioCodec             = "aac"
	defaultLanguage               = "eng"
	defaultMaxChannels            = 6
	defaultSubtitleCodec          = "mov_text"
	defaultRipCodec               = "srt"
	defaultOpenSubtitlesUserAgent = "mmt v1.0"
	defaultRemoveRetries          = 2
	defaultRemoveDelaySeconds     = 10
	defaultMinFreeGiB             = 10
	defaultChmod                  = "0644"
	defaultNtfyRequestTimeout     = 10
	defaultWatchSettleSeconds     = 30
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultTMDBBaseURL            = "https://api.themoviedb.org/3"
	defaultTMDBLanguage           = "en-US"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:            defaultLogDir,
			StateDir:          defaultStateDir,
			MinSourceBytes:    defaultMinSourceBytes,
			IgnoredExtensions: []string{"nfo", "ds_store"},
		},
		FFmpeg: FFmpeg{
			Binary:      defaultFFmpegBinary,
			ProbeBinary: defaultFFprobeBinary,
		},
		Video: Video{
			Codec:       defaultVideoCodec,
			Container:   defaultContainer,
			CRF:         defaultCRF,
			Preset:      defaultPreset,
			Tune:        defaultTune,
			Deinterlace: true,
		},
		Audio: Audio{
			Codec:           defaultAudioCodec,
			Languages:       []string{defaultLanguage},
			DefaultLanguage: defaultLanguage,
			MaxChannels:     defaultMaxChannels,
			Companion:       true,
			IgnoreTrueHD:    true,
		},
		Subtitles: Subtitles{
			Codec:                  defaultSubtitleCodec,
			Languages:              []string{defaultLanguage},
			DefaultLanguage:        defaultLanguage,
			Embed:                  true,
			RipCodec:               defaultRipCodec,
			ImportExternal:         true,
			DeleteImported:         true,
			AttachmentCodecs:       []string{"ttf", "otf"},
			DownloadLanguages:      []string{defaultLanguage},
			OpenSubtitlesUserAgent: defaultOpenSubtitlesUserAgent,
		},
		HWAccel: HWAccel{
			Devices:       map[string]string{"vaapi": "/dev/dri/renderD128"},
			OutputFormats: map[string]string{"vaapi": "vaapi"},
		},
		Output: Output{
			MinFreeGiB:         defaultMinFreeGiB,
			RemoveRetries:      defaultRemoveRetries,
			RemoveDelaySeconds: defaultRemoveDelaySeconds,
		},
		Permissions: Permissions{
			Chmod: defaultChmod,
			UID:   -1,
			GID:   -1,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
			Started:        true,
			TierCompleted:  false,
			Completed:      true,
			Errors:         true,
		},
		TMDB: TMDB{
			BaseURL:  defaultTMDBBaseURL,
			Language: defaultTMDBLanguage,
		},
		Watch: Watch{
			Extensions:    []string{"mkv", "mp4", "m4v", "avi", "mov", "ts", "m2ts", "wmv"},
			SettleSeconds: defaultWatchSettleSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
