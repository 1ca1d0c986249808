package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mmt/internal/history"
	"mmt/internal/logging"
	"mmt/internal/metrics"
	"mmt/internal/watch"
	"mmt/internal/workflow"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the configured directories and process settled files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(cfg.Watch.Dirs) == 0 {
				return errors.New("no watch directories configured; set [watch] dirs")
			}

			lock := flock.New(cfg.LockPath())
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire watch lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another watcher holds %s", cfg.LockPath())
			}
			defer func() { _ = lock.Unlock() }()

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return ctx.withHistory(func(store *history.Store) error {
				processor, logger, err := ctx.newProcessor(workflow.WithHistory(store))
				if err != nil {
					return err
				}
				if n, err := store.MarkInterrupted(signalCtx); err != nil {
					logging.WarnWithContext(logger, "interrupted runs not marked", "history_recovery_failed",
						logging.String(logging.FieldImpact, "crashed runs stay listed as running"),
						logging.Error(err),
					)
				} else if n > 0 {
					logger.Info("marked interrupted runs", logging.Int64("count", n))
				}
				if err := processor.Preflight(signalCtx); err != nil {
					return err
				}

				opts := watch.OptionsFromConfig(cfg)
				opts.Skip = historySkip(store, logger)
				watcher := watch.New(opts, processHandler(processor), logger)

				group, gctx := errgroup.WithContext(signalCtx)
				group.Go(func() error { return watcher.Run(gctx) })
				if addr := cfg.Metrics.Listen; addr != "" {
					group.Go(func() error { return metrics.NewServer(addr, logger).Run(gctx) })
				}
				err = group.Wait()
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
}

func processHandler(processor *workflow.Processor) watch.Handler {
	return func(ctx context.Context, path string) error {
		_, err := processor.Process(ctx, path, workflow.Request{})
		return err
	}
}

// historySkip vetoes files this tool produced and sources already
// completed at their current size and mtime.
func historySkip(store *history.Store, logger *slog.Logger) func(context.Context, string, fs.FileInfo) bool {
	return func(ctx context.Context, path string, info fs.FileInfo) bool {
		if output, err := store.IsOutput(ctx, path); err != nil {
			logger.Debug("history lookup failed", logging.String("path", path), logging.Error(err))
		} else if output {
			logging.Decision(logger, "watch candidate skipped", "watch_skip", "skip", "file is a pipeline output",
				logging.String("path", path))
			return true
		}
		done, err := store.Completed(ctx, path, info.Size(), info.ModTime())
		if err != nil {
			logger.Debug("history lookup failed", logging.String("path", path), logging.Error(err))
			return false
		}
		if done {
			logging.Decision(logger, "watch candidate skipped", "watch_skip", "skip", "already processed",
				logging.String("path", path))
		}
		return done
	}
}
