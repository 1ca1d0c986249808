package workflow

import (
	"context"
	"log/slog"
	"time"

	"mmt/internal/config"
	"mmt/internal/encoder"
	"mmt/internal/history"
	"mmt/internal/logging"
	"mmt/internal/media/capabilities"
	"mmt/internal/media/ffprobe"
	"mmt/internal/media/resolution"
	"mmt/internal/notifications"
	"mmt/internal/postprocess"
	"mmt/internal/reconcile"
	"mmt/internal/services/jellyfin"
	"mmt/internal/services/plex"
	"mmt/internal/services/radarr"
	"mmt/internal/services/tmdb"
	"mmt/internal/subtitles"
	"mmt/internal/tagging"
	"mmt/internal/transcode"
)

// Encoder runs the encode and subtitle extraction for a directive.
type Encoder interface {
	Convert(ctx context.Context, d transcode.Directive, output string, progress func(encoder.Progress)) error
	Rip(ctx context.Context, source string, rip transcode.RipEntry, path string) error
}

// SubtitleFetcher downloads sidecars for languages a source lacks.
type SubtitleFetcher interface {
	Download(ctx context.Context, req subtitles.Request) []string
}

// Refresher tells a downstream library about a placed output.
type Refresher interface {
	Refresh(ctx context.Context, path string) error
}

// MetadataSource looks up tag metadata by TMDB id.
type MetadataSource interface {
	Movie(ctx context.Context, id int64) (tmdb.Details, error)
	Show(ctx context.Context, id int64) (tmdb.Details, error)
	Episode(ctx context.Context, showID int64, season, episode int) (tmdb.Episode, error)
}

// ProgressFunc receives encode progress for one tier.
type ProgressFunc func(tier resolution.Tier, p encoder.Progress)

// Request carries caller supplied metadata for one source.
type Request struct {
	Title   string
	Year    int
	TMDBID  int64
	Season  int
	Episode int
}

// Output is one placed tier output.
type Output struct {
	Tier resolution.Tier
	Path string
	Size int64
}

// Result summarises a processed source.
type Result struct {
	RunID    string
	Source   string
	Status   history.Status
	Outputs  []Output
	Failed   []resolution.Tier
	Sidecars []string
	Duration time.Duration
}

// Paths lists the placed output paths in tier order.
func (r Result) Paths() []string {
	paths := make([]string, 0, len(r.Outputs))
	for _, out := range r.Outputs {
		paths = append(paths, out.Path)
	}
	return paths
}

type namedRefresher struct {
	name string
	svc  Refresher
}

// Processor drives source files through the pipeline. It is safe to call
// Process for different sources concurrently; a lock file next to each
// source rejects concurrent runs of the same file.
type Processor struct {
	cfg    *config.Config
	logger *slog.Logger

	prober     ffprobe.Prober
	encoder    Encoder
	classifier transcode.Classifier
	caps       capabilities.Querier
	tagger     reconcile.Tagger
	subtitles  SubtitleFetcher
	metadata   MetadataSource
	notifier   notifications.Service
	history    *history.Store
	refreshers []namedRefresher
	post       *postprocess.Runner
	progress   ProgressFunc
	now        func() time.Time

	planner    *transcode.Planner
	reconciler *reconcile.Reconciler
}

// Option customises a Processor.
type Option func(*Processor)

// WithHistory records runs in store.
func WithHistory(store *history.Store) Option {
	return func(p *Processor) { p.history = store }
}

// WithProber replaces the ffprobe prober.
func WithProber(prober ffprobe.Prober) Option {
	return func(p *Processor) { p.prober = prober }
}

// WithEncoder replaces the ffmpeg encoder. The subtitle classifier and the
// tagger keep using ffmpeg unless replaced too.
func WithEncoder(enc Encoder) Option {
	return func(p *Processor) { p.encoder = enc }
}

// WithClassifier replaces the bitmap subtitle classifier.
func WithClassifier(c transcode.Classifier) Option {
	return func(p *Processor) { p.classifier = c }
}

// WithCapabilities replaces the hardware capability query.
func WithCapabilities(q capabilities.Querier) Option {
	return func(p *Processor) { p.caps = q }
}

// WithTagger replaces the output tagger; nil disables tagging.
func WithTagger(t reconcile.Tagger) Option {
	return func(p *Processor) { p.tagger = t }
}

// WithSubtitleFetcher replaces the OpenSubtitles downloader.
func WithSubtitleFetcher(f SubtitleFetcher) Option {
	return func(p *Processor) { p.subtitles = f }
}

// WithNotifier replaces the ntfy service.
func WithNotifier(n notifications.Service) Option {
	return func(p *Processor) { p.notifier = n }
}

// WithRefreshers replaces the Plex, Jellyfin and Radarr refreshers.
func WithRefreshers(refreshers map[string]Refresher) Option {
	return func(p *Processor) {
		p.refreshers = p.refreshers[:0]
		for _, name := range []string{"plex", "jellyfin", "radarr"} {
			if svc, ok := refreshers[name]; ok && svc != nil {
				p.refreshers = append(p.refreshers, namedRefresher{name: name, svc: svc})
			}
		}
	}
}

// WithMetadataSource replaces the TMDB lookup; nil disables it.
func WithMetadataSource(m MetadataSource) Option {
	return func(p *Processor) { p.metadata = m }
}

// WithProgress receives encode progress for every stats line.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Processor) { p.progress = fn }
}

// New wires a Processor from the configuration. Collaborators default to
// the ffmpeg/ffprobe executables and the configured integrations.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	ff := encoder.New(cfg.FFmpeg.Binary, logger)
	p := &Processor{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "workflow"),
		prober:     ffprobe.CommandProber{Binary: cfg.FFmpeg.ProbeBinary},
		encoder:    ff,
		classifier: ff,
		caps:       capabilities.Command{Binary: cfg.FFmpeg.Binary},
		tagger:     tagging.New(ff, logging.NewComponentLogger(logger, "tagging")),
		notifier:   notifications.NewService(cfg),
		refreshers: []namedRefresher{
			{name: "plex", svc: plex.NewConfiguredService(cfg)},
			{name: "jellyfin", svc: jellyfin.NewConfiguredService(cfg)},
			{name: "radarr", svc: radarr.NewConfiguredService(cfg)},
		},
		post: postprocess.New(cfg.PostProcess, logger),
		now:  time.Now,
	}
	if cfg.Subtitles.Download {
		if d := subtitles.NewDownloader(cfg.Subtitles.OpenSubtitlesAPIKey, cfg.Subtitles.OpenSubtitlesUserAgent, logger); d != nil {
			p.subtitles = d
		}
	}
	if client := tmdb.NewFromConfig(cfg); client != nil {
		p.metadata = client
	}
	for _, opt := range opts {
		opt(p)
	}
	p.planner = transcode.NewPlanner(transcode.SettingsFromConfig(cfg), p.caps, p.classifier, logger)
	p.reconciler = reconcile.New(reconcile.SettingsFromConfig(cfg), p.tagger, logger)
	return p
}

// Planner exposes the directive planner.
func (p *Processor) Planner() *transcode.Planner {
	return p.planner
}
