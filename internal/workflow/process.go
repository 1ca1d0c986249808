package workflow

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"mmt/internal/encoder"
	"mmt/internal/fileutil"
	"mmt/internal/history"
	"mmt/internal/logging"
	"mmt/internal/media/resolution"
	"mmt/internal/media/stream"
	"mmt/internal/metrics"
	"mmt/internal/reconcile"
	"mmt/internal/services"
	"mmt/internal/transcode"
)

const lockSuffix = ".mmt.lock"

// run is the state of one Process call.
type run struct {
	p        *Processor
	logger   *slog.Logger
	source   string
	original string
	req      Request
	scope    *runScope
	imported *runScope
	result   *Result
}

// Process encodes every tier of source and finalises the outputs. The
// returned error is nil only when every tier succeeded; a partial ladder
// still returns the placed outputs in Result alongside an ErrEncodeFailed
// error.
func (p *Processor) Process(ctx context.Context, source string, req Request) (Result, error) {
	start := p.now()
	if abs, err := filepath.Abs(source); err == nil {
		source = abs
	}
	runID := uuid.NewString()
	ctx = services.WithSource(services.WithRunID(ctx, runID), source)
	logger := logging.WithContext(ctx, p.logger)
	result := Result{RunID: runID, Source: source, Status: history.StatusSkipped}

	lock := flock.New(source + lockSuffix)
	locked, err := lock.TryLock()
	if err != nil {
		return result, services.Wrap(services.ErrTransient, "lock", "acquire", filepath.Base(source), err)
	}
	if !locked {
		return result, services.Wrap(services.ErrTransient, "lock", "acquire", filepath.Base(source)+" is already being processed", nil)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	p.recordBegin(ctx, logger, runID, source)

	r := &run{
		p:        p,
		logger:   logger,
		source:   source,
		original: source,
		req:      req,
		scope:    newRunScope(p.reconciler),
		imported: newRunScope(p.reconciler),
		result:   &result,
	}
	runErr := r.execute(ctx)
	r.scope.release(logger)
	// Imported sidecars are only disposable once an output carries them.
	if len(result.Outputs) > 0 {
		r.imported.release(logger)
	} else if n := len(r.imported.pending); n > 0 {
		logger.Info("imported subtitles kept", logging.Int("count", n))
	}

	result.Status = statusFor(result, runErr)
	result.Duration = p.now().Sub(start)
	r.finish(ctx, runErr)
	return result, runErr
}

func (r *run) execute(ctx context.Context) error {
	if err := r.p.Preflight(ctx); err != nil {
		return err
	}
	desc, err := r.p.ValidateSource(ctx, r.source)
	if err != nil {
		return err
	}
	tiers, err := r.p.Tiers(desc)
	if err != nil {
		return err
	}
	r.logger.Info("source accepted",
		logging.String("tiers", joinTiers(tiers)),
		logging.Float64("duration_seconds", desc.Duration),
		logging.Int("audio_streams", len(desc.Audio)),
		logging.Int("subtitle_streams", len(desc.Subtitles)),
		logging.String(logging.FieldEventType, "source_accepted"),
	)
	if err := r.p.notifier.NotifyProcessingStarted(ctx, r.source, len(tiers)); err != nil {
		r.logger.Debug("start notification failed", logging.Error(err))
	}

	r.req = r.p.lookupMetadata(ctx, r.logger, r.req)
	r.p.downloadSubtitles(ctx, r.logger, desc, r.req)
	return r.runTiers(ctx, desc, tiers)
}

// runTiers processes the ladder in descending order. A tier failure is
// contained; only ErrNoAudioStreams and cancellation stop the ladder.
func (r *run) runTiers(ctx context.Context, desc stream.Descriptor, tiers []resolution.Tier) error {
	policy := transcode.AudioPolicy(r.p.cfg)
	current := desc
	multi := len(tiers) > 1
	ripped := false
	var lastErr error

	for i, tier := range tiers {
		if err := ctx.Err(); err != nil {
			return services.Wrap(services.ErrEncodeFailed, "encode", "ladder", "cancelled before "+tier.String(), err)
		}
		tierCtx := services.WithTier(ctx, int(tier))
		logger := logging.WithContext(tierCtx, r.p.logger)

		d, err := r.p.planner.Build(tierCtx, current, tier, policy)
		if err != nil {
			logging.ErrorWithContext(logger, "no usable audio stream", "no_audio_streams",
				logging.String(logging.FieldErrorHint, "check audio.languages and audio.blocked against the source tracks"),
				logging.String(logging.FieldImpact, "source skipped for every tier"),
				logging.Error(err),
			)
			return err
		}
		r.imported.add(d.PendingDeletion...)
		recordAudioEntries(d)
		if !ripped {
			r.result.Sidecars = append(r.result.Sidecars, r.rip(tierCtx, logger, d)...)
			ripped = true
		}

		placed, err := r.encodeTier(tierCtx, logger, d, multi)
		if err != nil {
			lastErr = err
			r.result.Failed = append(r.result.Failed, tier)
			logging.WarnWithContext(logger, "tier failed", "tier_failed",
				logging.String(logging.FieldErrorHint, "see the ffmpeg output in the error"),
				logging.String(logging.FieldImpact, tier.String()+" output not produced"),
				logging.Error(err),
			)
			continue
		}

		out := Output{Tier: tier, Path: placed}
		if info, statErr := os.Stat(placed); statErr == nil {
			out.Size = info.Size()
		}
		r.result.Outputs = append(r.result.Outputs, out)
		r.p.recordOutput(ctx, logger, r.result.RunID, out)
		if err := r.p.notifier.NotifyTierCompleted(tierCtx, r.source, int(tier), placed); err != nil {
			logger.Debug("tier notification failed", logging.Error(err))
		}

		if i < len(tiers)-1 && current.Path == desc.Path {
			if next, ok := r.workingCopy(tierCtx, logger, placed, d.Container); ok {
				current = next
			}
		}
	}

	switch {
	case len(r.result.Outputs) == 0:
		return services.Wrap(services.ErrEncodeFailed, "encode", "ladder", "every tier failed", lastErr)
	case len(r.result.Failed) > 0:
		return services.Wrap(services.ErrEncodeFailed, "encode", "ladder", "failed tiers "+joinTiers(r.result.Failed), lastErr)
	}
	return nil
}

// encodeTier encodes d into its partial path and reconciles the result.
func (r *run) encodeTier(ctx context.Context, logger *slog.Logger, d transcode.Directive, multi bool) (string, error) {
	final := reconcile.OutputName(reconcile.Naming{
		Source: r.source,
		Dir:    r.p.cfg.Paths.OutputDir,
		Tier:   d.Tier,
		Ext:    d.Container,
		Multi:  multi,
	})
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return "", services.Wrap(services.ErrEncodeFailed, "encode", "create output directory", filepath.Dir(final), err)
	}
	guard, err := reconcile.Prepare(d.Primary(), final)
	if err != nil {
		return "", services.Wrap(services.ErrEncodeFailed, "encode", "prepare", filepath.Base(final), err)
	}
	if guard.Moved != "" {
		sources := append([]string(nil), d.Sources...)
		sources[0] = guard.Moved
		d.Sources = sources
		logger.Info("source set aside", logging.String("original", guard.Moved))
	}

	var progress func(p encoder.Progress)
	if r.p.progress != nil {
		tier := d.Tier
		progress = func(p encoder.Progress) { r.p.progress(tier, p) }
	}

	partial := reconcile.PartialPath(final)
	started := r.p.now()
	encErr := r.p.encoder.Convert(ctx, d, partial, progress)
	placed, err := r.p.reconciler.Reconcile(ctx, reconcile.Outcome{
		Partial:  partial,
		Final:    final,
		Err:      encErr,
		Guard:    guard,
		Metadata: r.metadata(d),
	})
	elapsed := r.p.now().Sub(started)
	if err != nil {
		metrics.RecordTier(int(d.Tier), "failed", elapsed)
		return "", err
	}
	metrics.RecordTier(int(d.Tier), "success", elapsed)
	if guard.Moved != "" && r.original == guard.Source {
		r.original = guard.Moved
	}
	logger.Info("tier complete",
		logging.String("output", placed),
		logging.Duration("elapsed", elapsed),
		logging.String(logging.FieldEventType, "tier_complete"),
	)
	return placed, nil
}

// workingCopy copies the first output next to the outputs and probes it
// so later tiers encode from it.
func (r *run) workingCopy(ctx context.Context, logger *slog.Logger, placed, container string) (stream.Descriptor, bool) {
	path := reconcile.OutputName(reconcile.Naming{
		Source: r.source,
		Dir:    r.p.cfg.Paths.OutputDir,
		Ext:    container,
		Copy:   true,
	})
	r.scope.add(path)
	warn := func(msg string, err error) {
		logging.WarnWithContext(logger, msg, "working_copy_failed",
			logging.String("path", path),
			logging.String(logging.FieldErrorHint, "check free space in the output directory"),
			logging.String(logging.FieldImpact, "remaining tiers encode from the original"),
			logging.Error(err),
		)
	}
	if err := fileutil.CopyFileVerified(placed, path); err != nil {
		warn("working copy failed", err)
		return stream.Descriptor{}, false
	}
	desc, err := r.p.probe(ctx, path)
	if err != nil {
		warn("working copy probe failed", err)
		return stream.Descriptor{}, false
	}
	logger.Debug("working copy ready", logging.String("path", path))
	return desc, true
}

// finish runs the post-ladder steps and records the outcome.
func (r *run) finish(ctx context.Context, runErr error) {
	p, result, logger := r.p, r.result, r.logger

	if len(result.Outputs) > 0 {
		if runErr == nil {
			r.retireOriginal(logger)
		}
		p.refresh(ctx, logger, result.Outputs[0].Path)
		if failures := p.post.Run(ctx, r.postEnv()); failures > 0 {
			logger.Debug("post-process scripts failed", logging.Int("failures", failures))
		}
	}

	switch result.Status {
	case history.StatusCompleted:
		if err := p.notifier.NotifyProcessingCompleted(ctx, r.source, len(result.Outputs), result.Duration); err != nil {
			logger.Debug("completion notification failed", logging.Error(err))
		}
		logger.Info("source complete",
			logging.Int("outputs", len(result.Outputs)),
			logging.Duration("elapsed", result.Duration),
			logging.String(logging.FieldEventType, "source_complete"),
		)
	case history.StatusSkipped:
		logger.Info("source skipped",
			logging.String("reason", errorMessage(runErr)),
			logging.String(logging.FieldEventType, "source_skipped"),
		)
	default:
		r.reportFailure(ctx, runErr)
	}

	metrics.RecordFile(string(result.Status))
	if path := p.cfg.Metrics.Textfile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			logger.Debug("metrics textfile not written", logging.Error(err))
		}
	}
	p.recordFinish(ctx, logger, result.RunID, result.Status, runErr)
}

func (r *run) reportFailure(ctx context.Context, runErr error) {
	attrs := []logging.Attr{
		logging.String("resolved_status", string(r.result.Status)),
		logging.Int("outputs", len(r.result.Outputs)),
		logging.String("failed_tiers", joinTiers(r.result.Failed)),
		logging.Bool("recoverable", services.IsRecoverable(runErr)),
		logging.String(logging.FieldErrorHint, "inspect the log for the failing tier"),
		logging.Error(runErr),
	}
	if r.result.Status == history.StatusPartial {
		attrs = append(attrs, logging.String(logging.FieldImpact, "some tiers are missing"))
		logging.WarnWithContext(r.logger, "source partially processed", "source_partial", attrs...)
	} else {
		attrs = append(attrs, logging.String(logging.FieldImpact, "no output produced"))
		logging.ErrorWithContext(r.logger, "source failed", "source_failed", attrs...)
	}
	if err := r.p.notifier.NotifyError(ctx, runErr, filepath.Base(r.source)); err != nil {
		if errors.Is(err, context.Canceled) {
			r.logger.Debug("shutting down, error notification not sent")
		} else {
			r.logger.Debug("error notification failed", logging.Error(err))
		}
	}
}

// retireOriginal deletes the source when output.delete_original is set.
func (r *run) retireOriginal(logger *slog.Logger) {
	if !r.p.cfg.Output.DeleteOriginal {
		return
	}
	for _, out := range r.result.Outputs {
		if filepath.Clean(out.Path) == filepath.Clean(r.original) {
			return
		}
	}
	if err := r.p.reconciler.RemoveFile(r.original); err != nil {
		logging.WarnWithContext(logger, "original not deleted", "delete_original_failed",
			logging.String("original", r.original),
			logging.String(logging.FieldErrorHint, "file may be locked by another process"),
			logging.String(logging.FieldImpact, "source kept next to the outputs"),
			logging.Error(err),
		)
		return
	}
	logger.Info("original deleted", logging.String("original", r.original))
}

func statusFor(result Result, err error) history.Status {
	switch {
	case err == nil:
		return history.StatusCompleted
	case errors.Is(err, services.ErrInvalidSource):
		return history.StatusSkipped
	case len(result.Outputs) > 0:
		return history.StatusPartial
	}
	return history.StatusFailed
}

func recordAudioEntries(d transcode.Directive) {
	for _, entry := range d.Audio {
		kind := "transcode"
		switch {
		case entry.Companion:
			kind = "companion"
		case entry.Codec == "copy":
			kind = "copy"
		}
		metrics.AudioEntriesTotal.WithLabelValues(kind).Inc()
	}
}

func joinTiers(tiers []resolution.Tier) string {
	parts := make([]string, 0, len(tiers))
	for _, tier := range tiers {
		parts = append(parts, tier.String())
	}
	return strings.Join(parts, ",")
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
