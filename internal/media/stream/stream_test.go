package stream

import (
	"errors"
	"testing"

	"mmt/internal/media/ffprobe"
	"mmt/internal/services"
)

func probeResult(streams ...ffprobe.Stream) ffprobe.Result {
	return ffprobe.Result{Streams: streams, Format: ffprobe.Format{FormatName: "matroska,webm", Duration: "60", Size: "1000"}}
}

func TestFromProbeNormalizesStreams(t *testing.T) {
	result := probeResult(
		ffprobe.Stream{Index: 0, CodecType: "video", CodecName: "h264", Width: 1920, Height: 1080, FieldOrder: "progressive"},
		ffprobe.Stream{Index: 1, CodecType: "video", CodecName: "mjpeg", Disposition: map[string]int{"attached_pic": 1}},
		ffprobe.Stream{Index: 2, CodecType: "audio", CodecName: "TrueHD", ChannelLayout: "7.1", Tags: map[string]string{"language": "en"}},
		ffprobe.Stream{Index: 3, CodecType: "audio", CodecName: "ac3", Channels: 2, Tags: map[string]string{"title": "Director Commentary"}},
		ffprobe.Stream{Index: 4, CodecType: "subtitle", CodecName: "hdmv_pgs_subtitle", Tags: map[string]string{"language": "fre"}, Disposition: map[string]int{"forced": 1}},
		ffprobe.Stream{Index: 5, CodecType: "attachment", CodecName: "ttf", Tags: map[string]string{"filename": "a.ttf", "mimetype": "font/ttf"}},
	)

	desc, err := FromProbe("/media/movie.mkv", result)
	if err != nil {
		t.Fatalf("FromProbe: %v", err)
	}
	if desc.Video.Index != 0 || desc.Video.Width != 1920 {
		t.Fatalf("unexpected video stream: %+v", desc.Video)
	}
	if len(desc.Audio) != 2 || len(desc.Subtitles) != 1 || len(desc.Attachments) != 1 {
		t.Fatalf("unexpected stream counts: audio=%d subs=%d attachments=%d", len(desc.Audio), len(desc.Subtitles), len(desc.Attachments))
	}
	first := desc.Audio[0]
	if first.Codec != "truehd" || first.Channels != 8 || first.Language != "eng" {
		t.Fatalf("unexpected first audio: %+v", first)
	}
	if !first.IsLossless() {
		t.Fatal("expected truehd to be lossless")
	}
	second := desc.Audio[1]
	if second.Language != "und" {
		t.Fatalf("expected und for untagged stream, got %q", second.Language)
	}
	if !second.Disposition.Comment {
		t.Fatal("expected commentary title to set comment disposition")
	}
	sub := desc.Subtitles[0]
	if !sub.ImageBased || sub.Language != "fra" || !sub.Disposition.Forced {
		t.Fatalf("unexpected subtitle: %+v", sub)
	}
	if desc.Duration != 60 || desc.SizeBytes != 1000 {
		t.Fatalf("unexpected container values: %+v", desc)
	}
	if got := desc.AudioLanguages(); len(got) != 2 || got[0] != "eng" || got[1] != "und" {
		t.Fatalf("unexpected audio languages: %v", got)
	}
}

func TestFromProbeRejectsMissingStreams(t *testing.T) {
	tests := []struct {
		name   string
		result ffprobe.Result
	}{
		{"no video", probeResult(ffprobe.Stream{CodecType: "audio", CodecName: "aac", Channels: 2})},
		{"cover art only", probeResult(
			ffprobe.Stream{CodecType: "video", CodecName: "png", Disposition: map[string]int{"attached_pic": 1}},
			ffprobe.Stream{CodecType: "audio", CodecName: "aac", Channels: 2},
		)},
		{"no audio", probeResult(ffprobe.Stream{CodecType: "video", CodecName: "h264", Width: 640, Height: 480})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromProbe("/x.mkv", tt.result)
			if !errors.Is(err, services.ErrInvalidSource) {
				t.Fatalf("expected ErrInvalidSource, got %v", err)
			}
		})
	}
}

func TestChannelCount(t *testing.T) {
	tests := []struct {
		channels int
		layout   string
		want     int
	}{
		{6, "stereo", 6},
		{0, "mono", 1},
		{0, "stereo", 2},
		{0, "5.1(side)", 6},
		{0, "7.1", 8},
		{0, "", 0},
		{0, "quad", 0},
	}
	for _, tt := range tests {
		if got := ChannelCount(tt.channels, tt.layout); got != tt.want {
			t.Errorf("ChannelCount(%d, %q) = %d, want %d", tt.channels, tt.layout, got, tt.want)
		}
	}
}

func TestDispositionString(t *testing.T) {
	if got := (Disposition{}).String(); got != "0" {
		t.Fatalf("empty disposition = %q", got)
	}
	d := Disposition{Default: true, Forced: true, HearingImpaired: true}
	if got := d.String(); got != "default+forced+hearing_impaired" {
		t.Fatalf("unexpected disposition string %q", got)
	}
}

func TestDispositionWithTitle(t *testing.T) {
	d := Disposition{}.WithTitle("English (Forced) for Hearing impaired")
	if !d.Forced || !d.HearingImpaired || d.Comment {
		t.Fatalf("unexpected flags: %+v", d)
	}
}

func TestTitles(t *testing.T) {
	tests := []struct {
		channels int
		d        Disposition
		want     string
	}{
		{1, Disposition{}, "Mono"},
		{2, Disposition{}, "Stereo"},
		{6, Disposition{}, "5.1 Channel"},
		{8, Disposition{Comment: true}, "7.1 Channel (Commentary)"},
		{2, Disposition{HearingImpaired: true, Dub: true}, "Stereo (Hearing Impaired) (Dub)"},
	}
	for _, tt := range tests {
		if got := AudioTitle(tt.channels, tt.d); got != tt.want {
			t.Errorf("AudioTitle(%d, %+v) = %q, want %q", tt.channels, tt.d, got, tt.want)
		}
	}
	if got := SubtitleTitle(Disposition{Forced: true, HearingImpaired: true}); got != "Forced Hearing Impaired" {
		t.Fatalf("unexpected subtitle title %q", got)
	}
	if got := SubtitleTitle(Disposition{Default: true}); got != "" {
		t.Fatalf("expected empty subtitle title, got %q", got)
	}
}
