package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mmt/internal/encoder"
	"mmt/internal/media/stream"
	"mmt/internal/reconcile"
	"mmt/internal/transcode"
	"mmt/internal/workflow"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var (
		req        workflow.Request
		jsonOutput bool
		showArgs   bool
	)

	cmd := &cobra.Command{
		Use:   "plan <file>",
		Short: "Show the directives a source would be encoded with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			processor, _, err := ctx.newProcessor()
			if err != nil {
				return err
			}
			directives, err := processor.Plan(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, directives)
			}

			cfg := ctx.configValue()
			ff := encoder.New(cfg.FFmpeg.Binary, nil)
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, d := range directives {
				writePlan(out, d, colorize)
				if showArgs {
					final := reconcile.OutputName(reconcile.Naming{
						Source: d.Primary(),
						Dir:    cfg.Paths.OutputDir,
						Tier:   d.Tier,
						Ext:    d.Container,
						Multi:  len(directives) > 1,
					})
					fmt.Fprintln(out, ff.CommandLine(d, final))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print directives as JSON")
	cmd.Flags().BoolVar(&showArgs, "args", false, "Print the ffmpeg command line for each tier")
	cmd.Flags().Int64Var(&req.TMDBID, "tmdb", 0, "TMDB identifier used for subtitle search")
	cmd.Flags().IntVar(&req.Season, "season", 0, "Season number for episodes")
	cmd.Flags().IntVar(&req.Episode, "episode", 0, "Episode number for episodes")
	return cmd
}

func writePlan(out io.Writer, d transcode.Directive, colorize bool) {
	for _, line := range renderSectionHeader(d.Tier.String(), colorize) {
		fmt.Fprintln(out, line)
	}

	summary := fmt.Sprintf("%s %s, %s", d.Container, d.Video.Codec, videoRate(d.Video))
	if d.HWAccel != "" {
		summary += ", hwaccel " + d.HWAccel
	}
	fmt.Fprintln(out, renderStatusLine("Video", statusInfo, summary, colorize))
	if d.PolicyRelaxed {
		fmt.Fprintln(out, renderStatusLine("Languages", statusWarn, "no preferred audio language present; policy relaxed", colorize))
	}
	for i, path := range d.Sources {
		if i > 0 {
			fmt.Fprintln(out, renderStatusLine("Sidecar", statusInfo, path, colorize))
		}
	}

	rows := make([][]string, 0, len(d.Audio)+len(d.Subtitles)+len(d.Rips))
	for _, a := range d.Audio {
		note := a.Debug
		if a.Companion {
			note = strings.TrimSpace("companion " + note)
		}
		rows = append(rows, []string{
			"audio", strconv.Itoa(a.SourceIndex), a.Codec, strconv.Itoa(a.Channels),
			kbps(a.BitrateKbps), a.Language, flags(a.Disposition), note,
		})
	}
	for _, s := range d.Subtitles {
		source := strconv.Itoa(s.SourceIndex)
		if s.Mode == transcode.SubtitleImported {
			source = fmt.Sprintf("#%d", s.Input)
		}
		rows = append(rows, []string{
			"subtitle", source, s.Codec, "", "", s.Language, flags(s.Disposition), s.Debug,
		})
	}
	for _, r := range d.Rips {
		rows = append(rows, []string{
			"rip", strconv.Itoa(r.SourceIndex), r.Codec, "", "", r.Language, flags(r.Disposition), r.Extension,
		})
	}
	if len(d.Attachments) > 0 {
		rows = append(rows, []string{"attachments", strconv.Itoa(len(d.Attachments)), "copy", "", "", "", "", ""})
	}

	fmt.Fprintln(out, renderTable(
		[]string{"Kind", "Input", "Codec", "Ch", "Bitrate", "Lang", "Flags", "Note"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignRight, alignLeft, alignLeft, alignLeft},
	))
}

func videoRate(v transcode.VideoOptions) string {
	if v.BitrateKbps > 0 {
		return kbps(v.BitrateKbps)
	}
	return "crf " + strconv.Itoa(v.CRF)
}

func kbps(value int) string {
	if value <= 0 {
		return ""
	}
	return strconv.Itoa(value) + "k"
}

func flags(d stream.Disposition) string {
	var parts []string
	if d.Default {
		parts = append(parts, "default")
	}
	if d.Forced {
		parts = append(parts, "forced")
	}
	if d.Comment {
		parts = append(parts, "comment")
	}
	if d.HearingImpaired {
		parts = append(parts, "sdh")
	}
	return strings.Join(parts, ",")
}
