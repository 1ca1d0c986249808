package subtitles

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mmt/internal/language"
	"mmt/internal/logging"
	"mmt/internal/services"
	"mmt/internal/subtitles/opensubtitles"
)

// SearchClient is the subset of the OpenSubtitles client the downloader
// uses.
type SearchClient interface {
	Search(ctx context.Context, req opensubtitles.SearchRequest) ([]opensubtitles.Subtitle, error)
	Download(ctx context.Context, fileID int64) (opensubtitles.DownloadResult, error)
}

// Request describes one best-effort download pass.
type Request struct {
	Source    string
	Languages []string
	Existing  []string
	TMDBID    int64
	Season    int
	Episode   int
	// Duration is the source runtime in seconds; zero skips the
	// runtime check on downloaded files.
	Duration float64
}

// maxCandidates bounds how many files are fetched per language when
// earlier ones fail validation.
const maxCandidates = 3

// Downloader fetches sidecar subtitles for languages the source lacks.
type Downloader struct {
	Client SearchClient
	Logger *slog.Logger
}

// NewDownloader returns nil when no client is configured, which callers
// treat as downloads disabled.
func NewDownloader(apiKey, userAgent string, logger *slog.Logger) *Downloader {
	if apiKey == "" {
		return nil
	}
	client, err := opensubtitles.New(opensubtitles.Config{APIKey: apiKey, UserAgent: userAgent})
	if err != nil {
		return nil
	}
	return &Downloader{Client: client, Logger: logging.NewComponentLogger(logger, "subtitle-download")}
}

// Download writes one srt per missing language next to the source and
// returns the written paths. Failures are logged and skipped.
func (d *Downloader) Download(ctx context.Context, req Request) []string {
	if d == nil || d.Client == nil {
		return nil
	}
	logger := d.logger()
	missing := missingLanguages(req.Languages, req.Existing)
	if len(missing) == 0 {
		return nil
	}
	hash, err := opensubtitles.Hash(req.Source)
	if err != nil {
		logging.WarnWithContext(logger, "subtitle hash failed", "subtitle_download_skipped",
			logging.String(logging.FieldErrorHint, "source could not be fingerprinted"),
			logging.String(logging.FieldImpact, "no subtitles downloaded"),
			logging.Error(err),
		)
		return nil
	}

	var written []string
	for _, lang := range missing {
		path, err := d.downloadOne(ctx, req, hash, lang)
		if err != nil {
			logging.WarnWithContext(logger, "subtitle download failed", "subtitle_download_failed",
				logging.String(logging.FieldErrorHint, "opensubtitles request failed"),
				logging.String(logging.FieldImpact, "language skipped"),
				logging.String("language", lang),
				logging.Error(err),
			)
			continue
		}
		if path == "" {
			logger.Debug("no subtitle candidates", logging.String("language", lang))
			continue
		}
		logger.Info("downloaded subtitle", logging.String("language", lang), logging.String("path", path))
		written = append(written, path)
	}
	return written
}

func (d *Downloader) logger() *slog.Logger {
	if d.Logger == nil {
		return logging.NewNop()
	}
	return d.Logger
}

func (d *Downloader) downloadOne(ctx context.Context, req Request, hash, lang string) (string, error) {
	code := language.ToISO2(lang)
	if code == "" {
		code = lang
	}
	search := opensubtitles.SearchRequest{
		MovieHash: hash,
		TMDBID:    req.TMDBID,
		Languages: []string{code},
		Season:    req.Season,
		Episode:   req.Episode,
	}
	var candidates []opensubtitles.Subtitle
	err := opensubtitles.Retry(ctx, opensubtitles.InitialBackoff, func() error {
		var searchErr error
		candidates, searchErr = d.Client.Search(ctx, search)
		return searchErr
	})
	if err != nil {
		return "", err
	}
	ranked := rankCandidates(candidates)
	if len(ranked) > maxCandidates {
		ranked = ranked[:maxCandidates]
	}
	var lastErr error
	for _, candidate := range ranked {
		var result opensubtitles.DownloadResult
		err = opensubtitles.Retry(ctx, opensubtitles.InitialBackoff, func() error {
			var dlErr error
			result, dlErr = d.Client.Download(ctx, candidate.FileID)
			return dlErr
		})
		if err != nil {
			return "", err
		}
		data, removed := CleanSRT(result.Data)
		if issues := CheckSRT(data, req.Duration); len(issues) > 0 {
			lastErr = services.Wrap(services.ErrValidation, "subtitles", "download",
				fmt.Sprintf("file %d rejected: %s", candidate.FileID, strings.Join(issues, ", ")), nil)
			continue
		}
		path := RipPath(req.Source, filepath.Dir(req.Source), lang, false, "srt")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "", fmt.Errorf("write subtitle: %w", err)
		}
		if removed > 0 {
			d.logger().Debug("removed advertisement cues", logging.String("path", path), logging.Int("cues", removed))
		}
		return path, nil
	}
	return "", lastErr
}

// rankCandidates orders hash matches first, then human translations, then
// the most downloaded files.
func rankCandidates(candidates []opensubtitles.Subtitle) []opensubtitles.Subtitle {
	ordered := append([]opensubtitles.Subtitle(nil), candidates...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.MovieHashMatch != b.MovieHashMatch {
			return a.MovieHashMatch
		}
		if a.Translated != b.Translated {
			return !a.Translated
		}
		return a.Downloads > b.Downloads
	})
	return ordered
}

func missingLanguages(wanted, existing []string) []string {
	have := make(map[string]struct{}, len(existing))
	for _, lang := range existing {
		have[language.ToISO3(lang)] = struct{}{}
	}
	var missing []string
	for _, lang := range language.NormalizeList(wanted) {
		if _, ok := have[lang]; ok {
			continue
		}
		have[lang] = struct{}{}
		missing = append(missing, lang)
	}
	return missing
}
