package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mmt/internal/history"
	"mmt/internal/workflow"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var req workflow.Request

	cmd := &cobra.Command{
		Use:   "process <file>...",
		Short: "Transcode one or more source files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 && (req.Title != "" || req.TMDBID != 0 || req.Episode != 0) {
				return errors.New("--title, --tmdb and --episode apply to a single file")
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			out := cmd.OutOrStdout()
			display := newProgressDisplay(cmd.ErrOrStderr())
			defer display.Stop()

			var opts []workflow.Option
			if display != nil {
				opts = append(opts, workflow.WithProgress(display.Update))
			}

			return ctx.withHistory(func(store *history.Store) error {
				processor, _, err := ctx.newProcessor(append(opts, workflow.WithHistory(store))...)
				if err != nil {
					return err
				}
				results, failed := processAll(signalCtx, processor, args, req)
				display.Stop()
				fmt.Fprintln(out, renderResults(results))
				if failed > 0 {
					return fmt.Errorf("%d of %d files failed", failed, len(args))
				}
				return signalCtx.Err()
			})
		},
	}

	cmd.Flags().StringVar(&req.Title, "title", "", "Title written to the output metadata")
	cmd.Flags().IntVar(&req.Year, "year", 0, "Release year written to the output metadata")
	cmd.Flags().Int64Var(&req.TMDBID, "tmdb", 0, "TMDB identifier used for tagging and subtitle search")
	cmd.Flags().IntVar(&req.Season, "season", 0, "Season number for episodes")
	cmd.Flags().IntVar(&req.Episode, "episode", 0, "Episode number for episodes")
	return cmd
}

// processAll runs each source in turn and stops early on cancellation.
func processAll(ctx context.Context, processor *workflow.Processor, sources []string, req workflow.Request) ([]workflow.Result, int) {
	results := make([]workflow.Result, 0, len(sources))
	failed := 0
	for _, source := range sources {
		if ctx.Err() != nil {
			break
		}
		result, err := processor.Process(ctx, source, req)
		if result.Source == "" {
			result.Source = source
		}
		if err != nil {
			if result.Status == "" {
				result.Status = history.StatusFailed
			}
			if result.Status != history.StatusSkipped {
				failed++
			}
		}
		results = append(results, result)
	}
	return results, failed
}

func renderResults(results []workflow.Result) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		tiers := make([]string, 0, len(r.Outputs))
		for _, out := range r.Outputs {
			tiers = append(tiers, out.Tier.String())
		}
		outputs := strings.Join(tiers, ", ")
		if outputs == "" {
			outputs = "-"
		}
		rows = append(rows, []string{
			filepath.Base(r.Source),
			string(r.Status),
			outputs,
			r.Duration.Round(time.Second).String(),
		})
	}
	return renderTable(
		[]string{"Source", "Status", "Outputs", "Elapsed"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	)
}
