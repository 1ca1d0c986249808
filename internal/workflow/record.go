package workflow

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"mmt/internal/history"
	"mmt/internal/logging"
	"mmt/internal/postprocess"
	"mmt/internal/tagging"
	"mmt/internal/transcode"
)

func (p *Processor) recordBegin(ctx context.Context, logger *slog.Logger, runID, source string) {
	if p.history == nil {
		return
	}
	var (
		size  int64
		mtime time.Time
	)
	if info, err := os.Stat(source); err == nil {
		size, mtime = info.Size(), info.ModTime()
	}
	if err := p.history.Begin(ctx, runID, source, size, mtime); err != nil {
		logger.Debug("history begin not recorded", logging.Error(err))
	}
}

func (p *Processor) recordOutput(ctx context.Context, logger *slog.Logger, runID string, out Output) {
	if p.history == nil {
		return
	}
	if err := p.history.AddOutput(ctx, runID, history.Output{Tier: int(out.Tier), Path: out.Path, Size: out.Size}); err != nil {
		logger.Debug("history output not recorded", logging.Error(err))
	}
}

func (p *Processor) recordFinish(ctx context.Context, logger *slog.Logger, runID string, status history.Status, runErr error) {
	if p.history == nil {
		return
	}
	if err := p.history.Finish(context.WithoutCancel(ctx), runID, status, runErr); err != nil {
		logger.Debug("history finish not recorded", logging.Error(err))
	}
}

// refresh notifies every configured library about the first output.
func (p *Processor) refresh(ctx context.Context, logger *slog.Logger, path string) {
	for _, r := range p.refreshers {
		if err := r.svc.Refresh(ctx, path); err != nil {
			logging.WarnWithContext(logger, "library refresh failed", "library_refresh_failed",
				logging.String("service", r.name),
				logging.String(logging.FieldErrorHint, "check the "+r.name+" url and credentials"),
				logging.String(logging.FieldImpact, "library picks the output up on its next scan"),
				logging.Error(err),
			)
			continue
		}
		logger.Debug("library refreshed", logging.String("service", r.name))
	}
}

func (r *run) metadata(d transcode.Directive) tagging.Metadata {
	title, year := r.req.Title, r.req.Year
	if title == "" {
		parsedTitle, parsedYear := tagging.ParseName(r.source)
		title = parsedTitle
		if year == 0 {
			year = parsedYear
		}
	}
	return tagging.Metadata{
		Title:    title,
		Year:     year,
		TMDBID:   r.tmdbID(),
		Season:   r.req.Season,
		Episode:  r.req.Episode,
		Language: d.DefaultAudioLanguage,
	}
}

func (r *run) postEnv() postprocess.Env {
	files := append(r.result.Paths(), r.result.Sidecars...)
	return postprocess.Env{
		Files:   files,
		TMDBID:  r.tmdbID(),
		Season:  r.req.Season,
		Episode: r.req.Episode,
	}
}

func (r *run) tmdbID() string {
	if r.req.TMDBID <= 0 {
		return ""
	}
	return strconv.FormatInt(r.req.TMDBID, 10)
}
