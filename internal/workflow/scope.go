package workflow

import (
	"log/slog"

	"mmt/internal/logging"
	"mmt/internal/reconcile"
)

// runScope collects the temporary files of one run. Nothing in it
// outlives the Process call that created it.
type runScope struct {
	reconciler *reconcile.Reconciler
	pending    []string
	seen       map[string]struct{}
}

func newRunScope(r *reconcile.Reconciler) *runScope {
	return &runScope{reconciler: r, seen: make(map[string]struct{})}
}

func (s *runScope) add(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, ok := s.seen[path]; ok {
			continue
		}
		s.seen[path] = struct{}{}
		s.pending = append(s.pending, path)
	}
}

// release removes every collected file. Failures are logged only.
func (s *runScope) release(logger *slog.Logger) {
	for _, path := range s.pending {
		if err := s.reconciler.RemoveFile(path); err != nil {
			logging.WarnWithContext(logger, "temporary file not removed", "cleanup_failed",
				logging.String("path", path),
				logging.String(logging.FieldErrorHint, "remove the file by hand"),
				logging.String(logging.FieldImpact, "stale file left on disk"),
				logging.Error(err),
			)
			continue
		}
		logger.Debug("temporary file removed", logging.String("path", path))
	}
	s.pending = nil
}
