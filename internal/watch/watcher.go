package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"mmt/internal/config"
	"mmt/internal/logging"
	"mmt/internal/metrics"
	"mmt/internal/reconcile"
)

// Handler processes a settled file.
type Handler func(ctx context.Context, path string) error

// Options configure a Watcher.
type Options struct {
	Dirs       []string
	Extensions []string
	Settle     time.Duration
	// Skip, when set, vetoes a settled file before the handler runs.
	Skip func(ctx context.Context, path string, info fs.FileInfo) bool
}

// OptionsFromConfig maps the [watch] section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Dirs:       cfg.Watch.Dirs,
		Extensions: cfg.Watch.Extensions,
		Settle:     time.Duration(cfg.Watch.SettleSeconds) * time.Second,
	}
}

type pendingFile struct {
	size  int64
	since time.Time
}

// Watcher queues and dispatches settled files.
type Watcher struct {
	opts    Options
	handler Handler
	logger  *slog.Logger
	exts    map[string]struct{}
	pending map[string]pendingFile
	now     func() time.Time
}

// New constructs a Watcher.
func New(opts Options, handler Handler, logger *slog.Logger) *Watcher {
	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		exts[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	if opts.Settle <= 0 {
		opts.Settle = 30 * time.Second
	}
	return &Watcher{
		opts:    opts,
		handler: handler,
		logger:  logging.NewComponentLogger(logger, "watch"),
		exts:    exts,
		pending: make(map[string]pendingFile),
		now:     time.Now,
	}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if len(w.opts.Dirs) == 0 {
		return fmt.Errorf("watch: no directories configured")
	}
	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer notify.Close()

	for _, dir := range w.opts.Dirs {
		if err := w.addTree(notify, dir, true); err != nil {
			return err
		}
	}
	w.logger.Info("watching directories",
		logging.Any("dirs", w.opts.Dirs),
		logging.Duration("settle", w.opts.Settle),
		logging.Int("queued", len(w.pending)),
	)

	interval := w.opts.Settle / 4
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			metrics.WatchPending.Set(0)
			return nil
		case event, ok := <-notify.Events:
			if !ok {
				return nil
			}
			w.handleEvent(notify, event)
		case err, ok := <-notify.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", logging.Error(err))
		case <-ticker.C:
			w.dispatchSettled(ctx)
		}
		metrics.WatchPending.Set(float64(len(w.pending)))
	}
}

func (w *Watcher) handleEvent(notify *fsnotify.Watcher, event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		delete(w.pending, event.Name)
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if event.Has(fsnotify.Create) {
				if err := w.addTree(notify, event.Name, true); err != nil {
					logging.WarnWithContext(w.logger, "new directory not watched", "watch_add_failed",
						logging.String("dir", event.Name),
						logging.String(logging.FieldImpact, "files created inside it are ignored until restart"),
						logging.Error(err),
					)
				}
			}
			return
		}
		w.enqueue(event.Name, info)
	}
}

// addTree watches root and its subdirectories, queueing existing files
// when scan is set.
func (w *Watcher) addTree(notify *fsnotify.Watcher, root string, scan bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := notify.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
			return nil
		}
		if scan {
			if info, err := d.Info(); err == nil {
				w.enqueue(path, info)
			}
		}
		return nil
	})
}

func (w *Watcher) enqueue(path string, info fs.FileInfo) {
	if !w.Candidate(path) {
		return
	}
	current, ok := w.pending[path]
	if ok && current.size == info.Size() {
		return
	}
	w.pending[path] = pendingFile{size: info.Size(), since: w.now()}
}

// Candidate reports whether path has a watched extension and is not a
// work file of a running encode.
func (w *Watcher) Candidate(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || reconcile.IsWorkFile(path) {
		return false
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	_, ok := w.exts[ext]
	return ok
}

func (w *Watcher) dispatchSettled(ctx context.Context) {
	now := w.now()
	for path, entry := range w.pending {
		info, err := os.Stat(path)
		if err != nil {
			delete(w.pending, path)
			continue
		}
		if info.Size() != entry.size {
			w.pending[path] = pendingFile{size: info.Size(), since: now}
			continue
		}
		if now.Sub(entry.since) < w.opts.Settle {
			continue
		}
		delete(w.pending, path)
		if w.opts.Skip != nil && w.opts.Skip(ctx, path, info) {
			w.logger.Debug("settled file skipped", logging.String("path", path))
			continue
		}
		w.logger.Info("file settled", logging.String("path", path), logging.Int64("size_bytes", info.Size()))
		if err := w.handler(ctx, path); err != nil {
			w.logger.Error("processing failed", logging.String("path", path), logging.Error(err))
		}
		if ctx.Err() != nil {
			return
		}
	}
}
