package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mmt/internal/media/capabilities"
	"mmt/internal/transcode"
	"mmt/internal/workflow"
)

func newCapabilitiesCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "capabilities",
		Short: "List the hardware accelerations and codecs ffmpeg supports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			set, err := capabilities.Query(cmd.Context(), cfg.FFmpeg.Binary)
			if err != nil {
				return err
			}

			processor, _, err := ctx.newProcessor(workflow.WithCapabilities(capabilities.Static(set)))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Hardware accelerations: %s\n", listOrNone(set.HWAccels))
			fmt.Fprintf(out, "Selected video encoder: %s\n", processor.Planner().Encoder(cmd.Context()))

			encoders := capabilities.Sorted(set.Encoders)
			if !all {
				encoders = filterNames(encoders, func(name string) bool {
					return transcode.IsHardwareEncoder(name) || name == transcode.VideoEncoder(cfg.Video.Codec)
				})
			}
			rows := make([][]string, 0, len(encoders))
			for _, name := range encoders {
				rows = append(rows, []string{name, yesNo(transcode.IsHardwareEncoder(name))})
			}
			fmt.Fprintln(out, renderTable([]string{"Encoder", "Hardware"}, rows, nil))

			decoders := capabilities.Sorted(set.Decoders)
			if !all {
				decoders = filterNames(decoders, func(name string) bool {
					if strings.HasSuffix(name, "_cuvid") {
						return true
					}
					for _, accel := range set.HWAccels {
						if strings.HasSuffix(name, "_"+accel) {
							return true
						}
					}
					return false
				})
			}
			rows = rows[:0]
			for _, name := range decoders {
				rows = append(rows, []string{name})
			}
			fmt.Fprintln(out, renderTable([]string{"Decoder"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "List every encoder and decoder, not only the hardware ones")
	return cmd
}

func filterNames(names []string, keep func(string) bool) []string {
	var kept []string
	for _, name := range names {
		if keep(name) {
			kept = append(kept, name)
		}
	}
	return kept
}

func listOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}
