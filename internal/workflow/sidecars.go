package workflow

import (
	"context"
	"log/slog"
	"os"

	"mmt/internal/language"
	"mmt/internal/logging"
	"mmt/internal/media/stream"
	"mmt/internal/subtitles"
	"mmt/internal/transcode"
)

// downloadSubtitles fetches sidecars for configured languages the source
// lacks. Downloads land next to the source so the planner imports them
// like any other external subtitle.
func (p *Processor) downloadSubtitles(ctx context.Context, logger *slog.Logger, desc stream.Descriptor, req Request) []string {
	if p.subtitles == nil || !p.cfg.Subtitles.Download || !p.cfg.Subtitles.ImportExternal {
		return nil
	}
	existing := make([]string, 0, len(desc.Subtitles))
	for _, s := range desc.Subtitles {
		existing = append(existing, language.Normalize(s.Language, language.Undetermined))
	}
	external, err := subtitles.Discover(desc.Path, p.cfg.Subtitles.DefaultLanguage)
	if err != nil {
		logger.Debug("external subtitle scan failed", logging.Error(err))
	}
	for _, ext := range external {
		existing = append(existing, ext.Language)
	}
	paths := p.subtitles.Download(ctx, subtitles.Request{
		Source:    desc.Path,
		Languages: p.cfg.Subtitles.DownloadLanguages,
		Existing:  existing,
		TMDBID:    req.TMDBID,
		Season:    req.Season,
		Episode:   req.Episode,
		Duration:  desc.Duration,
	})
	if len(paths) > 0 {
		logger.Info("subtitles downloaded", logging.Int("count", len(paths)))
	}
	return paths
}

// rip extracts the directive's rip candidates into sidecars beside where
// the outputs end up. A failed extraction skips that stream only.
func (r *run) rip(ctx context.Context, logger *slog.Logger, d transcode.Directive) []string {
	if len(d.Rips) == 0 {
		return nil
	}
	dir := r.p.cfg.Output.MoveTo
	if dir == "" {
		dir = r.p.cfg.Paths.OutputDir
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Debug("sidecar directory not created", logging.String("dir", dir), logging.Error(err))
			return nil
		}
	}

	var written []string
	for _, entry := range d.Rips {
		if entry.Extension == "" {
			continue
		}
		path := subtitles.RipPath(r.source, dir, entry.Language, entry.Disposition.Forced, entry.Extension)
		if err := r.p.encoder.Rip(ctx, d.Primary(), entry, path); err != nil {
			_ = os.Remove(path)
			logging.WarnWithContext(logger, "subtitle rip failed", "subtitle_rip_failed",
				logging.Int("stream_index", entry.SourceIndex),
				logging.String("language", entry.Language),
				logging.String(logging.FieldErrorHint, "ffmpeg could not write the subtitle codec"),
				logging.String(logging.FieldImpact, "sidecar not produced"),
				logging.Error(err),
			)
			continue
		}
		logger.Info("subtitle ripped",
			logging.Int("stream_index", entry.SourceIndex),
			logging.String("path", path),
		)
		written = append(written, path)
	}
	return written
}
