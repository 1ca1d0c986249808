package workflow

import (
	"context"
	"log/slog"

	"mmt/internal/logging"
)

// lookupMetadata fills the title and year from TMDB when the caller gave
// an id but no title. Episodes take the episode name as title. Lookup
// failures leave req unchanged; tagging then falls back to the file name.
func (p *Processor) lookupMetadata(ctx context.Context, logger *slog.Logger, req Request) Request {
	if p.metadata == nil || req.TMDBID <= 0 || req.Title != "" {
		return req
	}
	warn := func(err error) {
		logging.WarnWithContext(logger, "tmdb lookup failed", "tmdb_lookup_failed",
			logging.Int64("tmdb_id", req.TMDBID),
			logging.String(logging.FieldErrorHint, "check tmdb.api_key and the id passed with --tmdb"),
			logging.String(logging.FieldImpact, "title taken from the file name"),
			logging.Error(err),
		)
	}

	if req.Episode > 0 {
		show, err := p.metadata.Show(ctx, req.TMDBID)
		if err != nil {
			warn(err)
			return req
		}
		episode, err := p.metadata.Episode(ctx, req.TMDBID, req.Season, req.Episode)
		if err != nil {
			warn(err)
			return req
		}
		req.Title = episode.Name
		if req.Title == "" {
			req.Title = show.DisplayTitle()
		}
		if req.Year == 0 {
			req.Year = episode.Year()
		}
	} else {
		movie, err := p.metadata.Movie(ctx, req.TMDBID)
		if err != nil {
			warn(err)
			return req
		}
		req.Title = movie.DisplayTitle()
		if req.Year == 0 {
			req.Year = movie.Year()
		}
	}
	logger.Info("tmdb metadata resolved",
		logging.Int64("tmdb_id", req.TMDBID),
		logging.String("title", req.Title),
		logging.Int("year", req.Year),
	)
	return req
}
