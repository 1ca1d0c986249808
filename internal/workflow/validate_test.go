package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mmt/internal/logging"
	"mmt/internal/media/ffprobe"
	"mmt/internal/media/resolution"
	"mmt/internal/media/stream"
	"mmt/internal/services"
	"mmt/internal/testsupport"
)

func TestValidateSourceRejections(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.MinSourceBytes = 100
	dir := filepath.Join(testsupport.BaseDir(cfg), "media")
	testsupport.WriteFile(t, filepath.Join(dir, "movie.nfo"), 200)
	testsupport.WriteFile(t, filepath.Join(dir, "movie.mkv.part"), 200)
	testsupport.WriteFile(t, filepath.Join(dir, "small.mkv"), 10)
	testsupport.WriteFile(t, filepath.Join(dir, "audio-only.mkv"), 200)
	if err := os.MkdirAll(filepath.Join(dir, "folder.mkv"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	audioOnly := ffprobe.Result{Streams: []ffprobe.Stream{{Index: 0, CodecType: "audio", CodecName: "aac", Channels: 2}}}
	p := New(cfg, logging.NewNop(), WithProber(fakeProber{result: audioOnly}))

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "absent.mkv")},
		{"directory", filepath.Join(dir, "folder.mkv")},
		{"ignored extension", filepath.Join(dir, "movie.nfo")},
		{"partial output", filepath.Join(dir, "movie.mkv.part")},
		{"below minimum size", filepath.Join(dir, "small.mkv")},
		{"no video stream", filepath.Join(dir, "audio-only.mkv")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.ValidateSource(context.Background(), tt.path); !errors.Is(err, services.ErrInvalidSource) {
				t.Fatalf("err = %v, want ErrInvalidSource", err)
			}
		})
	}
}

func TestValidateSourceProbeFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := filepath.Join(testsupport.BaseDir(cfg), "movie.mkv")
	testsupport.WriteFile(t, source, 64)

	p := New(cfg, logging.NewNop(), WithProber(fakeProber{err: errors.New("invalid data found")}))
	_, err := p.ValidateSource(context.Background(), source)
	if !errors.Is(err, services.ErrInvalidSource) {
		t.Fatalf("err = %v, want ErrInvalidSource", err)
	}
}

func TestTiers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := filepath.Join(testsupport.BaseDir(cfg), "movie.mkv")
	testsupport.WriteFile(t, source, 64)

	tests := []struct {
		name   string
		width  int
		height int
		multi  bool
		want   []resolution.Tier
	}{
		{"native only", 3840, 2160, false, []resolution.Tier{resolution.Tier2160}},
		{"full ladder", 1280, 720, true, []resolution.Tier{resolution.Tier720, resolution.Tier480, resolution.Tier360, resolution.Tier240}},
		{"narrow source", 720, 576, false, []resolution.Tier{resolution.Tier480}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg.Video.MultiBitrate = tt.multi
			p := New(cfg, logging.NewNop(), WithProber(fakeProber{result: probeResult(tt.width, tt.height)}))
			desc, err := p.ValidateSource(context.Background(), source)
			if err != nil {
				t.Fatalf("ValidateSource: %v", err)
			}
			got, err := p.Tiers(desc)
			if err != nil {
				t.Fatalf("Tiers: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("tiers = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("tiers = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestTiersRejectsZeroHeight(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p := New(cfg, logging.NewNop())
	desc, err := stream.FromProbe("movie.mkv", probeResult(1920, 0))
	if err != nil {
		t.Fatalf("FromProbe: %v", err)
	}
	if _, err := p.Tiers(desc); !errors.Is(err, services.ErrInvalidSource) {
		t.Fatalf("err = %v, want ErrInvalidSource", err)
	}
}
