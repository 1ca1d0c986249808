package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mmt/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check binaries, directories and integrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg)
			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, r := range results {
				kind := statusOK
				switch {
				case !r.Passed:
					kind = statusError
				case r.Warning:
					kind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Pipeline", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Multi-bitrate", statusInfo, yesNo(cfg.Video.MultiBitrate), colorize))
			fmt.Fprintln(out, renderStatusLine("Hardware accel", statusInfo, yesNo(len(cfg.HWAccel.Accels) > 0), colorize))
			fmt.Fprintln(out, renderStatusLine("Subtitle download", statusInfo, yesNo(cfg.Subtitles.Download), colorize))
			fmt.Fprintln(out, renderStatusLine("Delete original", statusInfo, yesNo(cfg.Output.DeleteOriginal), colorize))

			if failures := preflight.Failures(results); len(failures) > 0 {
				return fmt.Errorf("%s failed", pluralize(len(failures), "check"))
			}
			return nil
		},
	}
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
