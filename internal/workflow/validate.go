package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"mmt/internal/media/resolution"
	"mmt/internal/media/stream"
	"mmt/internal/reconcile"
	"mmt/internal/services"
)

// ValidateSource rejects files that are not worth probing and probes the
// rest. Every rejection is ErrInvalidSource so callers can skip the file.
func (p *Processor) ValidateSource(ctx context.Context, path string) (stream.Descriptor, error) {
	info, err := os.Stat(path)
	if err != nil {
		return stream.Descriptor{}, services.Wrap(services.ErrInvalidSource, "validate", "stat", filepath.Base(path), err)
	}
	if info.IsDir() {
		return stream.Descriptor{}, services.Wrap(services.ErrInvalidSource, "validate", "stat", filepath.Base(path)+" is a directory", nil)
	}
	if p.cfg.IsIgnoredExtension(filepath.Ext(path)) {
		return stream.Descriptor{}, services.Wrap(services.ErrInvalidSource, "validate", "extension", "ignored extension "+filepath.Ext(path), nil)
	}
	if reconcile.IsWorkFile(path) {
		return stream.Descriptor{}, services.Wrap(services.ErrInvalidSource, "validate", "extension", "partial or set-aside output", nil)
	}
	if minBytes := p.cfg.Paths.MinSourceBytes; minBytes > 0 && info.Size() < minBytes {
		return stream.Descriptor{}, services.Wrap(services.ErrInvalidSource, "validate", "size",
			fmt.Sprintf("%d bytes is below paths.min_source_bytes %d", info.Size(), minBytes), nil)
	}
	return p.probe(ctx, path)
}

func (p *Processor) probe(ctx context.Context, path string) (stream.Descriptor, error) {
	result, err := p.prober.Probe(ctx, path)
	if err != nil {
		return stream.Descriptor{}, services.Wrap(services.ErrInvalidSource, "validate", "probe", filepath.Base(path), err)
	}
	return stream.FromProbe(path, result)
}

// Tiers returns the tiers to produce for desc: the native tier, or the
// full ladder below it when video.multi_bitrate is set.
func (p *Processor) Tiers(desc stream.Descriptor) ([]resolution.Tier, error) {
	width, height := desc.Video.Width, desc.Video.Height
	if p.cfg.Video.MultiBitrate {
		return resolution.Ladder(width, height)
	}
	tier, err := resolution.Classify(width, height)
	if err != nil {
		return nil, err
	}
	return []resolution.Tier{tier}, nil
}
