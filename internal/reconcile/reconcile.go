package reconcile

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mmt/internal/config"
	"mmt/internal/faststart"
	"mmt/internal/fileutil"
	"mmt/internal/logging"
	"mmt/internal/services"
	"mmt/internal/tagging"
)

// Tagger writes metadata into a finished output.
type Tagger interface {
	Tag(ctx context.Context, path string, meta tagging.Metadata) error
}

// Settings control placement of finished outputs.
type Settings struct {
	MoveTo        string
	Mode          fs.FileMode
	UID           int
	GID           int
	RemoveRetries int
	RemoveDelay   time.Duration
}

// SettingsFromConfig maps the output and permission sections.
func SettingsFromConfig(cfg *config.Config) Settings {
	mode := cfg.Permissions.Mode
	if mode == 0 {
		mode = 0o644
	}
	return Settings{
		MoveTo:        cfg.Output.MoveTo,
		Mode:          mode,
		UID:           cfg.Permissions.UID,
		GID:           cfg.Permissions.GID,
		RemoveRetries: cfg.Output.RemoveRetries,
		RemoveDelay:   time.Duration(cfg.Output.RemoveDelaySeconds) * time.Second,
	}
}

// Outcome is the result of one tier's encode.
type Outcome struct {
	Partial  string
	Final    string
	Err      error
	Guard    Guard
	Metadata tagging.Metadata
}

// Reconciler finalises or rolls back tier outputs.
type Reconciler struct {
	settings  Settings
	tagger    Tagger
	logger    *slog.Logger
	faststart func(path string) error
}

// New returns a Reconciler. tagger may be nil to skip tagging.
func New(settings Settings, tagger Tagger, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		settings:  settings,
		tagger:    tagger,
		logger:    logging.NewComponentLogger(logger, "reconcile"),
		faststart: faststart.Apply,
	}
}

// Reconcile returns the placed output path. A failed encode, or a partial
// that cannot be renamed into place, removes the partial file, restores a
// moved source and returns ErrEncodeFailed.
// Tagging and fast-start problems are logged and do not fail the tier.
func (r *Reconciler) Reconcile(ctx context.Context, o Outcome) (string, error) {
	logger := logging.WithContext(ctx, r.logger)
	if o.Err != nil {
		r.rollback(logger, o)
		return "", services.Wrap(services.ErrEncodeFailed, "reconcile", "encode", filepath.Base(o.Final), o.Err)
	}

	if err := os.Rename(o.Partial, o.Final); err != nil {
		r.rollback(logger, o)
		return "", services.Wrap(services.ErrEncodeFailed, "reconcile", "finalise output", filepath.Base(o.Final), err)
	}

	if r.tagger != nil {
		if err := r.tagger.Tag(ctx, o.Final, o.Metadata); err != nil {
			logging.WarnWithContext(logger, "tagging failed", "tagging_failed",
				logging.String("output", o.Final),
				logging.String(logging.FieldErrorHint, "check ffmpeg remux support for the container"),
				logging.String(logging.FieldImpact, "output left untagged"),
				logging.Error(err),
			)
		}
	}

	if isMP4Family(o.Final) {
		switch err := r.faststart(o.Final); {
		case err == nil:
			logger.Debug("moov atom relocated", logging.String("output", o.Final))
		case errors.Is(err, faststart.ErrAlreadyFastStart):
			logger.Debug("output already fast-start", logging.String("output", o.Final))
		default:
			logging.WarnWithContext(logger, "fast-start rewrite failed", "faststart_failed",
				logging.String("output", o.Final),
				logging.String(logging.FieldErrorHint, "file may be truncated or use a compressed header"),
				logging.String(logging.FieldImpact, "progressive playback may wait for the whole file"),
				logging.Error(err),
			)
		}
	}

	if err := r.applyPermissions(o.Final); err != nil {
		logging.WarnWithContext(logger, "permissions not applied", "permissions_failed",
			logging.String("output", o.Final),
			logging.String(logging.FieldErrorHint, "check permissions.uid/gid and process privileges"),
			logging.String(logging.FieldImpact, "output keeps default ownership"),
			logging.Error(err),
		)
	}

	placed := o.Final
	if r.settings.MoveTo != "" {
		target, err := fileutil.UniquePath(filepath.Join(r.settings.MoveTo, filepath.Base(o.Final)))
		if err != nil {
			return o.Final, services.Wrap(services.ErrEncodeFailed, "reconcile", "move", filepath.Base(o.Final), err)
		}
		if err := fileutil.Move(o.Final, target); err != nil {
			return o.Final, services.Wrap(services.ErrEncodeFailed, "reconcile", "move", filepath.Base(o.Final), err)
		}
		placed = target
	}
	logger.Info("output placed", logging.String("output", placed))
	return placed, nil
}

// rollback removes the partial output and puts a set-aside source back.
func (r *Reconciler) rollback(logger *slog.Logger, o Outcome) {
	if err := r.RemoveFile(o.Partial); err != nil {
		logger.Debug("partial output not removed", logging.Error(err))
	}
	if err := o.Guard.Restore(); err != nil {
		logging.WarnWithContext(logger, "original not restored", "restore_failed",
			logging.String("original", o.Guard.Moved),
			logging.String(logging.FieldErrorHint, "rename the .original file back by hand"),
			logging.String(logging.FieldImpact, "source left under its set-aside name"),
			logging.Error(err),
		)
	}
}

// RemoveFile deletes path with the configured bounded retry. Failures are
// ErrCleanup.
func (r *Reconciler) RemoveFile(path string) error {
	return RemoveFile(path, r.settings.RemoveRetries, r.settings.RemoveDelay)
}

// RemoveFile deletes path, retrying up to retries more times.
func RemoveFile(path string, retries int, delay time.Duration) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := fileutil.RemoveWithRetry(path, retries, delay); err != nil {
		return services.Wrap(services.ErrCleanup, "cleanup", "remove", filepath.Base(path), err)
	}
	return nil
}

func (r *Reconciler) applyPermissions(path string) error {
	if r.settings.Mode != 0 {
		if err := os.Chmod(path, r.settings.Mode); err != nil {
			return err
		}
	}
	if r.settings.UID >= 0 || r.settings.GID >= 0 {
		return os.Chown(path, r.settings.UID, r.settings.GID)
	}
	return nil
}

func isMP4Family(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".m4v", ".mov":
		return true
	}
	return false
}
