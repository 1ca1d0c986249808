package transcode

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"mmt/internal/language"
	"mmt/internal/logging"
	"mmt/internal/media/capabilities"
	"mmt/internal/media/resolution"
	"mmt/internal/media/stream"
	"mmt/internal/services"
)

func baseSettings() Settings {
	return Settings{
		Video:                   VideoSettings{Codec: "h264", Container: "mp4", CRF: 22, Preset: "medium"},
		Threads:                 4,
		Audio:                   AudioSettings{Codec: "aac", MaxChannels: 6},
		AudioDefaultLanguage:    "eng",
		Subtitles:               SubtitleSettings{Codec: "mov_text", Embed: true},
		SubtitlePolicy:          language.NewPolicy([]string{"eng"}, nil, "eng"),
		SubtitleDefaultLanguage: "eng",
	}
}

func movieDescriptor() stream.Descriptor {
	return stream.Descriptor{
		Path:  "/media/movie.mkv",
		Video: stream.Stream{Index: 0, Kind: stream.KindVideo, Codec: "h264", Width: 1920, Height: 1080},
		Audio: []stream.Stream{
			{Index: 1, Kind: stream.KindAudio, Codec: "ac3", Channels: 6, Language: "fre"},
		},
	}
}

func TestBuildRelaxesAudioPolicy(t *testing.T) {
	planner := NewPlanner(baseSettings(), nil, nil, logging.NewNop())
	policy := language.NewPolicy([]string{"eng"}, nil, "eng")

	directive, err := planner.Build(context.Background(), movieDescriptor(), resolution.Tier1080, policy)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !directive.PolicyRelaxed {
		t.Fatal("expected policy relaxation to be recorded")
	}
	if len(directive.Audio) == 0 || directive.Audio[0].SourceIndex != 1 || directive.Audio[0].Language != "fra" {
		t.Fatalf("french audio should survive relaxation, got %+v", directive.Audio)
	}
	entry, ok := directive.DefaultAudio()
	if !ok || entry.SourceIndex != 1 || directive.DefaultAudioLanguage != "fra" {
		t.Fatalf("french audio should be default, got %+v (%s)", entry, directive.DefaultAudioLanguage)
	}
	if len(policy.Allowed) != 1 || policy.Allowed[0] != "eng" {
		t.Fatalf("caller policy must not change, got %v", policy.Allowed)
	}
	if directive.Video.Codec != "libx264" || directive.Video.Width != 1920 || directive.Video.BitrateKbps != 4900 {
		t.Fatalf("unexpected video options %+v", directive.Video)
	}
	if directive.Primary() != "/media/movie.mkv" || directive.Container != "mp4" {
		t.Fatalf("unexpected sources %v container %q", directive.Sources, directive.Container)
	}
	if slices.Contains(directive.PreOptions, "-fix_sub_duration") {
		t.Fatalf("no subtitles planned, got %v", directive.PreOptions)
	}
}

func TestBuildWithoutAudioFails(t *testing.T) {
	desc := movieDescriptor()
	desc.Audio = nil
	planner := NewPlanner(baseSettings(), nil, nil, nil)

	_, err := planner.Build(context.Background(), desc, resolution.Tier1080, language.Policy{})
	if !errors.Is(err, services.ErrNoAudioStreams) {
		t.Fatalf("expected ErrNoAudioStreams, got %v", err)
	}
}

func TestBuildContainerOptions(t *testing.T) {
	settings := baseSettings()
	settings.Video.Codec = "hevc"
	settings.Audio.Codec = "truehd"
	settings.AttachmentCodecs = []string{"ttf"}
	desc := movieDescriptor()
	desc.Video.Width, desc.Video.Height = 3840, 2160
	desc.Audio = []stream.Stream{{Index: 1, Kind: stream.KindAudio, Codec: "truehd", Channels: 6, Language: "eng"}}
	desc.Subtitles = []stream.Stream{{Index: 2, Kind: stream.KindSubtitle, Codec: "subrip", Language: "eng"}}
	desc.Attachments = []stream.Stream{
		{Index: 3, Kind: stream.KindAttachment, Codec: "ttf", Tags: map[string]string{"filename": "font.ttf", "mimetype": "font/ttf"}},
		{Index: 4, Kind: stream.KindAttachment, Codec: "png", Tags: map[string]string{"filename": "cover.png", "mimetype": "image/png"}},
	}
	planner := NewPlanner(settings, nil, nil, logging.NewNop())

	directive, err := planner.Build(context.Background(), desc, resolution.Tier2160, language.NewPolicy([]string{"eng"}, nil, "eng"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if directive.Audio[0].Codec != "copy" {
		t.Fatalf("truehd should be copied, got %+v", directive.Audio[0])
	}
	post := strings.Join(directive.PostOptions, " ")
	for _, want := range []string{"-strict experimental", "-tag:v hvc1", "-threads 4", "-movflags faststart"} {
		if !strings.Contains(post, want) {
			t.Errorf("post options %q missing %q", post, want)
		}
	}
	if !slices.Contains(directive.PreOptions, "-fix_sub_duration") {
		t.Fatalf("expected -fix_sub_duration, got %v", directive.PreOptions)
	}
	if len(directive.Subtitles) != 1 || !directive.Subtitles[0].Disposition.Default {
		t.Fatalf("english subtitle should be default, got %+v", directive.Subtitles)
	}
	if len(directive.Attachments) != 1 || directive.Attachments[0].Filename != "font.ttf" {
		t.Fatalf("expected only the font attachment, got %+v", directive.Attachments)
	}
}

func TestBuildMatroskaSkipsMP4Options(t *testing.T) {
	settings := baseSettings()
	settings.Video.Codec = "hevc"
	settings.Video.Container = "mkv"
	planner := NewPlanner(settings, nil, nil, nil)

	directive, err := planner.Build(context.Background(), movieDescriptor(), resolution.Tier720, language.Policy{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if slices.Contains(directive.PostOptions, "hvc1") {
		t.Fatalf("hvc1 tag is for mp4 containers only, got %v", directive.PostOptions)
	}
	if directive.Video.Width != 1280 {
		t.Fatalf("expected 720p width, got %d", directive.Video.Width)
	}
}

func TestBuildHardwareEncoder(t *testing.T) {
	settings := baseSettings()
	settings.Video.Codec = "hevc_vaapi"
	settings.HWAccel = HWAccelSettings{
		Accels:        []string{"vaapi"},
		Devices:       map[string]string{"vaapi": "/dev/dri/renderD128"},
		OutputFormats: map[string]string{"vaapi": "vaapi"},
	}
	caps := capabilities.NewStatic([]string{"vaapi"}, []string{"hevc_vaapi", "libx265"}, nil)
	planner := NewPlanner(settings, caps, nil, logging.NewNop())

	directive, err := planner.Build(context.Background(), movieDescriptor(), resolution.Tier1080, language.Policy{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if directive.Video.Codec != "hevc_vaapi" || directive.HWAccel != "vaapi" || directive.Video.Device != "mmt" {
		t.Fatalf("unexpected hardware plan %+v accel=%q", directive.Video, directive.HWAccel)
	}
	if directive.Video.Upload != "format=nv12|vaapi,hwupload" {
		t.Fatalf("expected hwupload filter, got %q", directive.Video.Upload)
	}
	if !slices.Contains(directive.PreOptions, "-hwaccel") {
		t.Fatalf("expected -hwaccel in %v", directive.PreOptions)
	}
}

func TestBuildHardwareEncoderFallsBack(t *testing.T) {
	settings := baseSettings()
	settings.Video.Codec = "h264_nvenc"
	caps := capabilities.NewStatic(nil, []string{"libx264"}, nil)
	planner := NewPlanner(settings, caps, nil, logging.NewNop())

	directive, err := planner.Build(context.Background(), movieDescriptor(), resolution.Tier1080, language.Policy{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if directive.Video.Codec != "libx264" || directive.HWAccel != "" {
		t.Fatalf("expected software fallback, got %+v", directive.Video)
	}
	if planner.Encoder(context.Background()) != "libx264" {
		t.Fatal("encoder choice should be cached")
	}
}

type flakyQuerier struct {
	calls int
	fail  int
	set   capabilities.Set
}

func (q *flakyQuerier) Query(context.Context) (capabilities.Set, error) {
	q.calls++
	if q.calls <= q.fail {
		return capabilities.Set{}, errors.New("ffmpeg -hwaccels: signal: killed")
	}
	return q.set, nil
}

func TestBuildRetriesFailedCapabilityQuery(t *testing.T) {
	settings := baseSettings()
	settings.Video.Codec = "hevc_vaapi"
	settings.HWAccel = HWAccelSettings{
		Accels:        []string{"vaapi"},
		Devices:       map[string]string{"vaapi": "/dev/dri/renderD128"},
		OutputFormats: map[string]string{"vaapi": "vaapi"},
	}
	// Both lookups of the first build fail.
	querier := &flakyQuerier{fail: 2, set: capabilities.Set(capabilities.NewStatic([]string{"vaapi"}, []string{"hevc_vaapi"}, nil))}
	planner := NewPlanner(settings, querier, nil, logging.NewNop())
	ctx := context.Background()

	first, err := planner.Build(ctx, movieDescriptor(), resolution.Tier1080, language.Policy{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if first.HWAccel != "" || first.Video.Codec != "libx265" {
		t.Fatalf("failed query should degrade to software, got %+v accel=%q", first.Video, first.HWAccel)
	}

	second, err := planner.Build(ctx, movieDescriptor(), resolution.Tier1080, language.Policy{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if second.HWAccel != "vaapi" || second.Video.Codec != "hevc_vaapi" {
		t.Fatalf("recovered query should enable hardware, got %+v accel=%q", second.Video, second.HWAccel)
	}

	if querier.calls != 3 {
		t.Fatalf("query calls = %d, want 3", querier.calls)
	}
	if _, err := planner.Build(ctx, movieDescriptor(), resolution.Tier720, language.Policy{}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if querier.calls != 3 {
		t.Fatalf("successful query should be cached, got %d calls", querier.calls)
	}
}

func TestBuildVideoTitleFollowsTier(t *testing.T) {
	desc := movieDescriptor()
	desc.Video.Width, desc.Video.Height = 1440, 1080
	planner := NewPlanner(baseSettings(), nil, nil, nil)

	cases := []struct {
		tier  resolution.Tier
		width int
		title string
	}{
		{resolution.Tier1080, 1440, "1080p"},
		{resolution.Tier720, 960, "720p"},
		{resolution.Tier240, 320, "240p"},
	}
	for _, tc := range cases {
		t.Run(tc.tier.String(), func(t *testing.T) {
			directive, err := planner.Build(context.Background(), desc, tc.tier, language.Policy{})
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if directive.Video.Width != tc.width || directive.Video.Title != tc.title {
				t.Fatalf("video width %d title %q, want %d %q", directive.Video.Width, directive.Video.Title, tc.width, tc.title)
			}
		})
	}
}
