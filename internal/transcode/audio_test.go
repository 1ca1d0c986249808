package transcode

import (
	"reflect"
	"testing"

	"mmt/internal/language"
	"mmt/internal/media/resolution"
	"mmt/internal/media/stream"
)

func defaultAudioSettings() AudioSettings {
	return AudioSettings{Codec: "aac", MaxChannels: 6, Companion: true, IgnoreTrueHD: true}
}

func audioStream(index int, codec string, channels int, lang string) stream.Stream {
	return stream.Stream{Index: index, Kind: stream.KindAudio, Codec: codec, Channels: channels, Language: lang}
}

func TestBuildAudioTrueHDAndLowTierSuppression(t *testing.T) {
	streams := []stream.Stream{
		audioStream(1, "truehd", 6, "eng"),
		audioStream(2, "truehd", 6, "eng"),
		audioStream(3, "aac", 2, "eng"),
	}
	entries := BuildAudio(streams, resolution.Tier480.Profile(), language.NewPolicy([]string{"eng"}, nil, "eng"), defaultAudioSettings(), nil)
	if len(entries) != 1 {
		t.Fatalf("expected a single entry, got %+v", entries)
	}
	got := entries[0]
	if got.SourceIndex != 1 || got.Channels != 2 || got.BitrateKbps != 128 || got.Codec != "aac" || got.Debug != debugUniversal {
		t.Fatalf("unexpected entry %+v", got)
	}
	for _, e := range entries {
		if e.Companion {
			t.Fatal("companion must not be created at a 128k ceiling")
		}
	}
}

func TestBuildAudioSkipsTrueHDWithCoreTwin(t *testing.T) {
	streams := []stream.Stream{
		audioStream(1, "truehd", 8, "eng"),
		audioStream(2, "ac3", 8, "eng"),
	}
	entries := BuildAudio(streams, resolution.Tier1080.Profile(), language.Policy{}, defaultAudioSettings(), nil)
	for _, e := range entries {
		if e.SourceIndex == 1 {
			t.Fatalf("truehd stream with core twin should be skipped: %+v", entries)
		}
	}

	alone := BuildAudio(streams[:1], resolution.Tier1080.Profile(), language.Policy{}, defaultAudioSettings(), nil)
	if len(alone) == 0 || alone[0].SourceIndex != 1 {
		t.Fatalf("lone truehd stream must be kept: %+v", alone)
	}

	settings := defaultAudioSettings()
	settings.IgnoreTrueHD = false
	all := BuildAudio(streams, resolution.Tier1080.Profile(), language.Policy{}, settings, nil)
	if all[0].SourceIndex != 1 {
		t.Fatalf("truehd should be kept when ignore is off: %+v", all)
	}
}

func TestBuildAudioMultichannelWithCompanion(t *testing.T) {
	streams := []stream.Stream{audioStream(1, "dts", 8, "eng")}
	entries := BuildAudio(streams, resolution.Tier2160.Profile(), language.Policy{}, defaultAudioSettings(), nil)
	if len(entries) != 2 {
		t.Fatalf("expected primary and companion, got %+v", entries)
	}
	primary, companion := entries[0], entries[1]
	if primary.Channels != 6 || primary.BitrateKbps != 3*512 || primary.SampleRate != 96000 || primary.Debug != debugMaxChannels {
		t.Fatalf("unexpected primary %+v", primary)
	}
	if primary.Title != "5.1 Channel" {
		t.Fatalf("unexpected title %q", primary.Title)
	}
	if !companion.Companion || companion.Channels != 2 || companion.BitrateKbps != 512 || companion.SampleRate != 48000 || companion.Codec != "aac" {
		t.Fatalf("unexpected companion %+v", companion)
	}
}

func TestBuildAudioScalesBitrateAndCopies(t *testing.T) {
	streams := []stream.Stream{audioStream(1, "aac", 6, "eng")}
	settings := defaultAudioSettings()
	settings.Companion = false
	entries := BuildAudio(streams, resolution.Tier1080.Profile(), language.Policy{}, settings, nil)
	if len(entries) != 1 {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[0].Codec != "copy" || entries[0].BitrateKbps != 3*256 || entries[0].SampleRate != 48000 {
		t.Fatalf("unexpected entry %+v", entries[0])
	}
}

func TestBuildAudioDuplicateStereoSuppression(t *testing.T) {
	streams := []stream.Stream{
		audioStream(1, "ac3", 6, "eng"),
		audioStream(2, "aac", 2, "eng"),
	}
	entries := BuildAudio(streams, resolution.Tier1080.Profile(), language.Policy{}, defaultAudioSettings(), nil)
	// primary 5.1, companion stereo, then the source stereo is a duplicate.
	if len(entries) != 2 {
		t.Fatalf("expected stereo source to be suppressed, got %+v", entries)
	}
	if entries[0].Channels != 6 || !entries[1].Companion {
		t.Fatalf("unexpected order %+v", entries)
	}
}

func TestBuildAudioLanguageFilteringAndOrder(t *testing.T) {
	commentary := audioStream(4, "aac", 2, "eng")
	commentary.Disposition.Comment = true
	streams := []stream.Stream{
		audioStream(1, "ac3", 2, "fra"),
		commentary,
		audioStream(2, "ac3", 2, "eng"),
		audioStream(3, "ac3", 2, "deu"),
	}
	policy := language.NewPolicy([]string{"eng", "fra"}, []string{"deu"}, "eng")
	entries := BuildAudio(streams, resolution.Tier1080.Profile(), policy, defaultAudioSettings(), nil)
	var order []int
	for _, e := range entries {
		order = append(order, e.SourceIndex)
	}
	if !reflect.DeepEqual(order, []int{2, 1}) {
		t.Fatalf("unexpected order %v (entries %+v)", order, entries)
	}
}

func TestBuildAudioIsIdempotent(t *testing.T) {
	streams := []stream.Stream{
		audioStream(1, "truehd", 8, "eng"),
		audioStream(2, "ac3", 6, "fra"),
		audioStream(3, "aac", 2, "eng"),
	}
	policy := language.NewPolicy([]string{"eng"}, nil, "eng")
	first := BuildAudio(streams, resolution.Tier1440.Profile(), policy, defaultAudioSettings(), nil)
	second := BuildAudio(streams, resolution.Tier1440.Profile(), policy, defaultAudioSettings(), nil)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("builder is not deterministic:\n%+v\n%+v", first, second)
	}
	if streams[0].Index != 1 || streams[2].Index != 3 {
		t.Fatal("input slice must not be reordered")
	}
}

func TestSortAudio(t *testing.T) {
	commentary := audioStream(1, "aac", 6, "eng")
	commentary.Disposition.Comment = true
	sorted := SortAudio([]stream.Stream{
		commentary,
		audioStream(2, "aac", 2, "eng"),
		audioStream(3, "aac", 6, "eng"),
		audioStream(4, "aac", 8, "spa"),
	}, language.NewPolicy([]string{"eng"}, nil, "eng"))
	var got []int
	for _, s := range sorted {
		got = append(got, s.Index)
	}
	if !reflect.DeepEqual(got, []int{3, 2, 4, 1}) {
		t.Fatalf("unexpected order %v", got)
	}
}
