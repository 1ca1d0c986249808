package transcode

import (
	"mmt/internal/media/resolution"
	"mmt/internal/media/stream"
)

// VideoOptions are the encode parameters for the single video stream.
type VideoOptions struct {
	SourceIndex  int
	Codec        string
	BitrateKbps  int
	CRF          int
	MaxRate      string
	BufSize      string
	Profile      string
	Preset       string
	Tune         string
	PixFmt       string
	FieldOrder   string
	Width        int
	Filter       string
	Upload       string
	Title        string
	Device       string
	DecodeDevice string
}

// AudioEntry is one output audio track.
type AudioEntry struct {
	SourceIndex int
	Codec       string
	Channels    int
	BitrateKbps int
	SampleRate  int
	Language    string
	Disposition stream.Disposition
	Title       string
	Debug       string
	Companion   bool
}

// SubtitleMode says where a subtitle entry comes from.
type SubtitleMode string

const (
	SubtitleEmbedded SubtitleMode = "embedded"
	SubtitleImported SubtitleMode = "imported"
)

// SubtitleEntry is one output subtitle track. Input is the position in
// Directive.Sources the track is read from.
type SubtitleEntry struct {
	Mode        SubtitleMode
	Input       int
	SourceIndex int
	Codec       string
	Language    string
	Disposition stream.Disposition
	Title       string
	Debug       string
	Path        string
}

// RipEntry is a subtitle stream extracted to a sidecar before the encode.
type RipEntry struct {
	SourceIndex int
	Codec       string
	Extension   string
	Language    string
	Disposition stream.Disposition
}

// AttachmentEntry is a copied attachment stream.
type AttachmentEntry struct {
	SourceIndex int
	Filename    string
	MimeType    string
}

// Directive is the complete option set for one tier of one source. It is
// built fresh per tier and not modified once handed to the encoder.
type Directive struct {
	Tier        resolution.Tier
	Container   string
	Sources     []string
	Video       VideoOptions
	Audio       []AudioEntry
	Subtitles   []SubtitleEntry
	Rips        []RipEntry
	Attachments []AttachmentEntry
	PreOptions  []string
	PostOptions []string

	// PendingDeletion lists imported sidecars to remove once at least one
	// output has been placed; Downloaded lists sidecars fetched for this build.
	PendingDeletion []string
	Downloaded      []string

	// Duration is the source length in seconds, for progress reporting.
	Duration float64

	PolicyRelaxed        bool
	DefaultAudioLanguage string
	HWAccel              string
}

// Primary returns the main input path.
func (d Directive) Primary() string {
	if len(d.Sources) == 0 {
		return ""
	}
	return d.Sources[0]
}

// DefaultAudio returns the entry carrying the default flag.
func (d Directive) DefaultAudio() (AudioEntry, bool) {
	for _, entry := range d.Audio {
		if entry.Disposition.Default {
			return entry, true
		}
	}
	return AudioEntry{}, false
}

// copiesCodec reports whether an audio entry copies a source stream of
// codec through unchanged.
func (d Directive) copiesCodec(desc stream.Descriptor, codec string) bool {
	for _, entry := range d.Audio {
		if entry.Codec != "copy" {
			continue
		}
		for _, s := range desc.Audio {
			if s.Index == entry.SourceIndex && s.Codec == codec {
				return true
			}
		}
	}
	return false
}
