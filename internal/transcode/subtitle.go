package transcode

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"mmt/internal/language"
	"mmt/internal/logging"
	"mmt/internal/media/stream"
	"mmt/internal/services"
	"mmt/internal/subtitles"
)

// SubtitleSettings holds the subtitle policy knobs.
type SubtitleSettings struct {
	Codec          string
	Embed          bool
	Rip            bool
	RipCodec       string
	DeleteImported bool
}

// Classifier decides whether a subtitle stream is bitmap based when the
// codec name alone does not say.
type Classifier interface {
	IsImageBased(ctx context.Context, path string, streamIndex int) (bool, error)
}

// SubtitlePlan is the subtitle part of a directive. Imports are extra
// inputs appended after the primary source; entry Input values assume that
// layout.
type SubtitlePlan struct {
	Entries         []SubtitleEntry
	Rips            []RipEntry
	Imports         []string
	PendingDeletion []string
}

var textSubtitleCodecs = map[string]struct{}{
	"subrip": {}, "srt": {}, "ass": {}, "ssa": {}, "mov_text": {}, "webvtt": {}, "text": {},
}

var imageSidecarExtensions = map[string]struct{}{
	"sub": {}, "idx": {}, "sup": {},
}

// BuildSubtitles routes every subtitle stream to embed, rip or skip and
// imports external sidecars. Streams must carry normalized languages.
func BuildSubtitles(ctx context.Context, source string, streams []stream.Stream, external []subtitles.External, policy language.Policy, settings SubtitleSettings, classifier Classifier, logger *slog.Logger) SubtitlePlan {
	if logger == nil {
		logger = logging.NewNop()
	}
	target := settings.Codec
	if target == "" {
		target = "mov_text"
	}
	var plan SubtitlePlan
	for _, s := range streams {
		attrs := []logging.Attr{logging.Int("stream_index", s.Index), logging.String("language", s.Language), logging.String("codec", s.Codec)}
		imageBased, err := classify(ctx, source, s, classifier)
		if err != nil {
			logging.WarnWithContext(logger, "subtitle probe failed", "subtitle_probe_failed",
				append(attrs,
					logging.String(logging.FieldErrorHint, "stream may be corrupt"),
					logging.String(logging.FieldImpact, "subtitle stream skipped"),
					logging.Error(services.Wrap(services.ErrSubtitleProbe, "plan", "classify subtitle", "probe failed", err)),
				)...,
			)
			continue
		}
		if !policy.IsAllowed(s.Language) {
			logging.Decision(logger, "subtitle stream skipped", "subtitle_language", "skip", "language not allowed", attrs...)
			continue
		}
		switch {
		case !imageBased && settings.Embed:
			codec := target
			if s.Codec == target {
				codec = codecCopy
			}
			plan.Entries = append(plan.Entries, SubtitleEntry{
				Mode:        SubtitleEmbedded,
				SourceIndex: s.Index,
				Codec:       codec,
				Language:    s.Language,
				Disposition: s.Disposition,
				Title:       stream.SubtitleTitle(s.Disposition),
				Debug:       "subtitle.embed-subs",
			})
		case !imageBased && settings.Rip:
			codec := settings.RipCodec
			if codec == "" {
				codec = "srt"
			}
			plan.Rips = append(plan.Rips, RipEntry{
				SourceIndex: s.Index,
				Codec:       codec,
				Extension:   subtitles.Extension(codec),
				Language:    s.Language,
				Disposition: s.Disposition,
			})
		case imageBased && settings.Rip:
			ext := subtitles.Extension(s.Codec)
			if ext == "" {
				logging.Decision(logger, "subtitle stream skipped", "subtitle_route", "skip", "no sidecar format for image codec", attrs...)
				continue
			}
			plan.Rips = append(plan.Rips, RipEntry{
				SourceIndex: s.Index,
				Codec:       codecCopy,
				Extension:   ext,
				Language:    s.Language,
				Disposition: s.Disposition,
			})
		default:
			logging.Decision(logger, "subtitle stream skipped", "subtitle_route", "skip", "not embeddable and ripping disabled", attrs...)
		}
	}

	sidecars := append([]subtitles.External(nil), external...)
	sort.SliceStable(sidecars, func(i, j int) bool {
		return policy.Rank(sidecars[i].Language) < policy.Rank(sidecars[j].Language)
	})
	for _, sidecar := range sidecars {
		name := filepath.Base(sidecar.Path)
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
		if _, image := imageSidecarExtensions[ext]; image || !settings.Embed {
			logging.Decision(logger, "external subtitle skipped", "subtitle_import", "skip", "image based or embedding disabled", logging.String("file", name))
			continue
		}
		if !policy.IsAllowed(sidecar.Language) {
			logging.Decision(logger, "external subtitle skipped", "subtitle_import", "skip", "language not allowed", logging.String("file", name), logging.String("language", sidecar.Language))
			continue
		}
		plan.Imports = append(plan.Imports, sidecar.Path)
		plan.Entries = append(plan.Entries, SubtitleEntry{
			Mode:        SubtitleImported,
			Input:       len(plan.Imports),
			SourceIndex: 0,
			Codec:       target,
			Language:    sidecar.Language,
			Disposition: sidecar.Disposition,
			Title:       stream.SubtitleTitle(sidecar.Disposition),
			Debug:       "subtitle.import",
			Path:        sidecar.Path,
		})
		if settings.DeleteImported {
			plan.PendingDeletion = append(plan.PendingDeletion, sidecar.Path)
		}
		logging.Decision(logger, "external subtitle imported", "subtitle_import", "import", "sidecar matches source", logging.String("file", name), logging.String("language", sidecar.Language))
	}
	return plan
}

// SortSubtitles orders entries by language preference, keeping source
// order otherwise.
func SortSubtitles(entries []SubtitleEntry, policy language.Policy) {
	sort.SliceStable(entries, func(i, j int) bool {
		return policy.Rank(entries[i].Language) < policy.Rank(entries[j].Language)
	})
}

func classify(ctx context.Context, source string, s stream.Stream, classifier Classifier) (bool, error) {
	if s.ImageBased {
		return true, nil
	}
	if _, ok := textSubtitleCodecs[s.Codec]; ok {
		return false, nil
	}
	if classifier == nil {
		return false, nil
	}
	return classifier.IsImageBased(ctx, source, s.Index)
}
