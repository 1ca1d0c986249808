package transcode

import (
	"log/slog"
	"sort"

	"mmt/internal/language"
	"mmt/internal/logging"
	"mmt/internal/media/resolution"
	"mmt/internal/media/stream"
)

const (
	maxAudioChannels = 6
	universalCeiling = 128
	hiResCeiling     = 256
	standardRate     = 48000
	hiResRate        = 96000
	companionCodec   = "aac"
	debugAudio       = "audio"
	debugUniversal   = "universal-audio"
	debugMaxChannels = "audio.max-channels"
	codecTrueHD      = "truehd"
	codecCopy        = "copy"
)

// AudioSettings holds the audio policy knobs.
type AudioSettings struct {
	Codec        string
	MaxChannels  int
	Companion    bool
	IgnoreTrueHD bool
}

// SortAudio orders streams for option building: commentary last, then by
// language preference, then by channel count descending. The sort is
// stable so equal streams keep source order.
func SortAudio(streams []stream.Stream, policy language.Policy) []stream.Stream {
	ordered := append([]stream.Stream(nil), streams...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Disposition.Comment != b.Disposition.Comment {
			return !a.Disposition.Comment
		}
		if ra, rb := policy.Rank(a.Language), policy.Rank(b.Language); ra != rb {
			return ra < rb
		}
		return a.Channels > b.Channels
	})
	return ordered
}

// BuildAudio derives the output audio entries for one tier. streams must
// already carry normalized languages. The result is deterministic for a
// given input.
func BuildAudio(streams []stream.Stream, profile resolution.Profile, policy language.Policy, settings AudioSettings, logger *slog.Logger) []AudioEntry {
	if logger == nil {
		logger = logging.NewNop()
	}
	target := settings.Codec
	if target == "" {
		target = companionCodec
	}
	maxChannels := settings.MaxChannels
	if maxChannels <= 0 || maxChannels > maxAudioChannels {
		maxChannels = maxAudioChannels
	}
	ceiling := profile.AudioCeilingKbps

	ordered := SortAudio(streams, policy)
	entries := make([]AudioEntry, 0, len(ordered)+1)
	for i, s := range ordered {
		attrs := []logging.Attr{logging.Int("stream_index", s.Index), logging.String("language", s.Language)}
		if settings.IgnoreTrueHD && skipTrueHD(ordered, i) {
			logging.Decision(logger, "audio stream skipped", "truehd_core", "skip", "another stream shares channels and language", attrs...)
			continue
		}
		if !policy.IsAllowed(s.Language) {
			logging.Decision(logger, "audio stream skipped", "audio_language", "skip", "language not allowed", attrs...)
			continue
		}

		var companion *AudioEntry
		if settings.Companion && s.Channels > 2 && ceiling > universalCeiling {
			companion = &AudioEntry{
				SourceIndex: s.Index,
				Codec:       companionCodec,
				Channels:    2,
				BitrateKbps: ceiling,
				SampleRate:  standardRate,
				Language:    s.Language,
				Disposition: s.Disposition,
				Title:       stream.AudioTitle(2, s.Disposition),
				Debug:       debugUniversal,
				Companion:   true,
			}
		}

		primary := primaryEntry(s, target, ceiling, maxChannels)
		switch {
		case len(entries) >= 1 && ceiling <= universalCeiling:
			logging.Decision(logger, "audio stream suppressed", "audio_suppress", "skip", "low tier keeps one track", attrs...)
		case len(entries) >= 2 && primary.Channels <= 2:
			logging.Decision(logger, "audio stream suppressed", "audio_suppress", "skip", "duplicate stereo track", attrs...)
		default:
			logger.Debug("audio entry created",
				logging.Int("stream_index", s.Index),
				logging.String("codec", primary.Codec),
				logging.Int("channels", primary.Channels),
				logging.Int("bitrate_kbps", primary.BitrateKbps),
				logging.String("debug", primary.Debug),
			)
			entries = append(entries, primary)
		}
		if companion != nil {
			logger.Debug("companion audio entry created", logging.Int("stream_index", s.Index), logging.Int("bitrate_kbps", companion.BitrateKbps))
			entries = append(entries, *companion)
		}
	}
	return entries
}

func primaryEntry(s stream.Stream, target string, ceiling, maxChannels int) AudioEntry {
	entry := AudioEntry{
		SourceIndex: s.Index,
		Language:    s.Language,
		Disposition: s.Disposition,
		Debug:       debugAudio,
		Codec:       target,
		SampleRate:  standardRate,
	}
	if ceiling > hiResCeiling {
		entry.SampleRate = hiResRate
	}
	switch {
	case s.Channels <= 2 || ceiling <= universalCeiling:
		entry.Channels = 2
		entry.BitrateKbps = ceiling
		entry.Debug = debugUniversal
	case s.Channels > maxChannels:
		entry.Channels = maxChannels
		entry.BitrateKbps = maxChannels * ceiling / 2
		entry.Debug = debugMaxChannels
	default:
		entry.Channels = s.Channels
		entry.BitrateKbps = s.Channels * ceiling / 2
	}
	if s.Codec == target && s.Channels == entry.Channels {
		entry.Codec = codecCopy
	}
	entry.Title = stream.AudioTitle(entry.Channels, s.Disposition)
	return entry
}

// skipTrueHD reports whether ordered[i] is a TrueHD stream shadowed by a
// twin with the same channels and language: any non-TrueHD twin, or an
// earlier TrueHD twin. A TrueHD stream without a twin is kept.
func skipTrueHD(ordered []stream.Stream, i int) bool {
	s := ordered[i]
	if s.Codec != codecTrueHD {
		return false
	}
	for j, other := range ordered {
		if j == i || other.Channels != s.Channels || other.Language != s.Language {
			continue
		}
		if other.Codec != codecTrueHD || j < i {
			return true
		}
	}
	return false
}
