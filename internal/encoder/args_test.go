package encoder

import (
	"slices"
	"strings"
	"testing"

	"mmt/internal/media/resolution"
	"mmt/internal/media/stream"
	"mmt/internal/transcode"
)

func sampleDirective() transcode.Directive {
	return transcode.Directive{
		Tier:      resolution.Tier1080,
		Container: "mp4",
		Sources:   []string{"/media/movie.mkv", "/media/movie.eng.srt"},
		Video: transcode.VideoOptions{
			SourceIndex: 0,
			Codec:       "libx264",
			CRF:         22,
			MaxRate:     "9856k",
			BufSize:     "14500k",
			Profile:     "high",
			Preset:      "veryfast",
			PixFmt:      "yuv420p",
			FieldOrder:  "tt",
			Width:       1920,
			Filter:      "bwdif=mode=send_field:parity=auto:deint=all",
			Title:       "1080p",
		},
		Audio: []transcode.AudioEntry{
			{SourceIndex: 1, Codec: "aac", Channels: 6, BitrateKbps: 768, SampleRate: 48000, Language: "eng", Title: "5.1 Channel", Disposition: stream.Disposition{Default: true}},
			{SourceIndex: 2, Codec: "copy", Channels: 2, Language: "fra", Title: "Stereo"},
		},
		Subtitles: []transcode.SubtitleEntry{
			{Mode: transcode.SubtitleImported, Input: 1, SourceIndex: 0, Codec: "mov_text", Language: "eng", Disposition: stream.Disposition{Default: true, Forced: true}, Title: "Forced"},
		},
		PreOptions:  []string{"-hide_banner", "-fix_sub_duration"},
		PostOptions: []string{"-threads", "4", "-movflags", "faststart"},
	}
}

func assertSequence(t *testing.T, args []string, seq ...string) {
	t.Helper()
	for i := 0; i+len(seq) <= len(args); i++ {
		if slices.Equal(args[i:i+len(seq)], seq) {
			return
		}
	}
	t.Fatalf("args missing %q\n%s", seq, strings.Join(args, " "))
}

func TestArgs(t *testing.T) {
	args := Args(sampleDirective(), "/out/movie.mp4.part")

	if args[0] != "-hide_banner" || args[len(args)-1] != "/out/movie.mp4.part" {
		t.Fatalf("unexpected framing: %v", args)
	}
	assertSequence(t, args, "-i", "/media/movie.mkv", "-i", "/media/movie.eng.srt")
	assertSequence(t, args, "-map", "0:0", "-c:v", "libx264", "-crf", "22")
	assertSequence(t, args, "-field_order", "tt")
	assertSequence(t, args, "-vf", "bwdif=mode=send_field:parity=auto:deint=all,scale=1920:-2")
	assertSequence(t, args, "-metadata:s:v:0", "title=1080p")
	assertSequence(t, args, "-map", "0:1", "-c:a:0", "aac", "-ac:a:0", "6", "-b:a:0", "768k", "-ar:a:0", "48000")
	assertSequence(t, args, "-disposition:a:0", "default")
	assertSequence(t, args, "-map", "0:2", "-c:a:1", "copy", "-metadata:s:a:1", "language=fra")
	assertSequence(t, args, "-disposition:a:1", "0")
	assertSequence(t, args, "-map", "1:0", "-c:s:0", "mov_text")
	assertSequence(t, args, "-disposition:s:0", "default+forced")
	assertSequence(t, args, "-movflags", "faststart", "-f", "mp4", "-y")
	if slices.Contains(args, "-sn") {
		t.Fatal("-sn must not appear when subtitles are mapped")
	}
}

func TestArgsHardwareUploadAfterScale(t *testing.T) {
	d := sampleDirective()
	d.Video.Codec = "hevc_vaapi"
	d.Video.Filter = ""
	d.Video.Upload = "format=nv12|vaapi,hwupload"
	d.Video.Device = "mmt"
	d.Subtitles = nil

	args := Args(d, "/out/movie.mp4.part")

	assertSequence(t, args, "-filter_hw_device", "mmt")
	assertSequence(t, args, "-vf", "scale=1920:-2,format=nv12|vaapi,hwupload")
	if !slices.Contains(args, "-sn") {
		t.Fatal("expected -sn without subtitles")
	}
}

func TestArgsAttachments(t *testing.T) {
	d := sampleDirective()
	d.Container = "mkv"
	d.Attachments = []transcode.AttachmentEntry{{SourceIndex: 5, Filename: "font.ttf", MimeType: "font/ttf"}}

	args := Args(d, "/out/movie.mkv.part")

	assertSequence(t, args, "-map", "0:5", "-c:t:0", "copy", "-metadata:s:t:0", "filename=font.ttf", "-metadata:s:t:0", "mimetype=font/ttf")
	assertSequence(t, args, "-f", "matroska")
}

func TestMuxer(t *testing.T) {
	cases := map[string]string{"mp4": "mp4", ".m4v": "mp4", "MKV": "matroska", "mov": "mov", "avi": ""}
	for in, want := range cases {
		if got := Muxer(in); got != want {
			t.Errorf("Muxer(%q) = %q, want %q", in, got, want)
		}
	}
}
