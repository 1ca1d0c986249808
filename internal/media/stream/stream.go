package stream

import (
	"fmt"
	"strconv"
	"strings"

	"mmt/internal/language"
	"mmt/internal/media/ffprobe"
	"mmt/internal/services"
)

// Kind is the stream category.
type Kind string

const (
	KindVideo      Kind = "video"
	KindAudio      Kind = "audio"
	KindSubtitle   Kind = "subtitle"
	KindAttachment Kind = "attachment"
)

// Stream is the normalized, read-only view of one probed track.
type Stream struct {
	Index       int
	Kind        Kind
	Codec       string
	CodecLong   string
	Profile     string
	Channels    int
	Language    string
	Title       string
	Disposition Disposition
	ImageBased  bool

	Width      int
	Height     int
	FieldOrder string
	PixFmt     string

	Tags map[string]string
}

// Descriptor is the normalized view of a probed source file.
type Descriptor struct {
	Path        string
	Format      string
	Duration    float64
	SizeBytes   int64
	Video       Stream
	Audio       []Stream
	Subtitles   []Stream
	Attachments []Stream
}

var imageSubtitleCodecs = map[string]struct{}{
	"hdmv_pgs_subtitle": {},
	"pgssub":            {},
	"dvd_subtitle":      {},
	"dvdsub":            {},
	"dvb_subtitle":      {},
	"dvbsub":            {},
	"xsub":              {},
}

var losslessCodecs = map[string]struct{}{
	"truehd": {}, "mlp": {}, "flac": {}, "alac": {},
	"pcm_s16le": {}, "pcm_s24le": {}, "pcm_s32le": {}, "pcm_bluray": {},
	"pcm_s16be": {}, "pcm_s24be": {},
}

// IsImageCodec reports whether codec is a known bitmap subtitle format.
func IsImageCodec(codec string) bool {
	_, ok := imageSubtitleCodecs[strings.ToLower(codec)]
	return ok
}

// IsLossless reports whether an audio stream carries a lossless codec.
func (s Stream) IsLossless() bool {
	if _, ok := losslessCodecs[s.Codec]; ok {
		return true
	}
	long := strings.ToLower(s.CodecLong)
	return strings.Contains(long, "lossless") || strings.Contains(long, "master audio")
}

// Label renders a short summary for logs and tables.
func (s Stream) Label() string {
	parts := []string{fmt.Sprintf("#%d", s.Index), s.Codec}
	if s.Kind == KindAudio && s.Channels > 0 {
		parts = append(parts, fmt.Sprintf("%dch", s.Channels))
	}
	if s.Language != "" {
		parts = append(parts, s.Language)
	}
	if flags := s.Disposition.String(); flags != "0" {
		parts = append(parts, flags)
	}
	return strings.Join(parts, " ")
}

// FromProbe normalizes an ffprobe result. A source without a video or an
// audio stream is rejected with services.ErrInvalidSource.
func FromProbe(path string, result ffprobe.Result) (Descriptor, error) {
	desc := Descriptor{
		Path:      path,
		Format:    result.Format.FormatName,
		Duration:  result.DurationSeconds(),
		SizeBytes: result.SizeBytes(),
	}
	haveVideo := false
	for _, raw := range result.Streams {
		s := fromProbeStream(raw)
		switch s.Kind {
		case KindVideo:
			if isCoverArt(raw) || haveVideo {
				continue
			}
			desc.Video = s
			haveVideo = true
		case KindAudio:
			desc.Audio = append(desc.Audio, s)
		case KindSubtitle:
			desc.Subtitles = append(desc.Subtitles, s)
		case KindAttachment:
			desc.Attachments = append(desc.Attachments, s)
		}
	}
	if !haveVideo {
		return Descriptor{}, services.Wrap(services.ErrInvalidSource, "probe", path, "no video stream", nil)
	}
	if len(desc.Audio) == 0 {
		return Descriptor{}, services.Wrap(services.ErrInvalidSource, "probe", path, "no audio stream", nil)
	}
	return desc, nil
}

func fromProbeStream(raw ffprobe.Stream) Stream {
	s := Stream{
		Index:       raw.Index,
		Kind:        Kind(strings.ToLower(raw.CodecType)),
		Codec:       strings.ToLower(strings.TrimSpace(raw.CodecName)),
		CodecLong:   raw.CodecLong,
		Profile:     raw.Profile,
		Language:    language.ToISO3(language.ExtractFromTags(raw.Tags)),
		Title:       raw.Tag("title"),
		Disposition: DispositionFromProbe(raw.Disposition),
		Width:       raw.Width,
		Height:      raw.Height,
		FieldOrder:  raw.FieldOrder,
		PixFmt:      raw.PixFmt,
		Tags:        raw.Tags,
	}
	if s.Kind == KindAudio {
		s.Channels = ChannelCount(raw.Channels, raw.ChannelLayout)
	}
	if s.Kind == KindAudio || s.Kind == KindSubtitle {
		s.Disposition = s.Disposition.WithTitle(s.Title)
	}
	if s.Kind == KindSubtitle {
		s.ImageBased = IsImageCodec(s.Codec)
	}
	return s
}

func isCoverArt(raw ffprobe.Stream) bool {
	return raw.Disposition["attached_pic"] == 1
}

// ChannelCount prefers the explicit channel count and otherwise derives it
// from a layout string such as "5.1(side)".
func ChannelCount(channels int, layout string) int {
	if channels > 0 {
		return channels
	}
	layout = strings.ToLower(strings.TrimSpace(layout))
	switch {
	case layout == "":
		return 0
	case layout == "mono":
		return 1
	case layout == "stereo":
		return 2
	}
	if strings.Contains(layout, ".") {
		total := 0
		for _, part := range strings.Split(layout, ".") {
			part = strings.Trim(part, "abcdefghijklmnopqrstuvwxyz ()")
			if n, err := strconv.Atoi(part); err == nil {
				total += n
			}
		}
		return total
	}
	return 0
}

// Languages returns the normalized language of each audio stream in order.
func (d Descriptor) AudioLanguages() []string {
	langs := make([]string, 0, len(d.Audio))
	for _, s := range d.Audio {
		langs = append(langs, s.Language)
	}
	return langs
}

// IsWide reports whether the source is classified by width.
func (d Descriptor) IsWide() bool {
	return d.Video.Height > 0 && float64(d.Video.Width)/float64(d.Video.Height) > 1.4
}
