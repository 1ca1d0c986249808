package encoder

import (
	"fmt"
	"strconv"
	"strings"

	"mmt/internal/transcode"
)

// Args builds the ffmpeg argument vector (without the binary) that writes
// directive to output.
func Args(d transcode.Directive, output string) []string {
	args := make([]string, 0, 96)
	args = append(args, d.PreOptions...)
	for _, source := range d.Sources {
		args = append(args, "-i", source)
	}

	args = append(args, "-map", fmt.Sprintf("0:%d", d.Video.SourceIndex))
	args = appendVideo(args, d.Video)

	for i, a := range d.Audio {
		args = append(args, "-map", fmt.Sprintf("0:%d", a.SourceIndex))
		args = append(args, fmt.Sprintf("-c:a:%d", i), a.Codec)
		if a.Codec != "copy" {
			args = append(args,
				fmt.Sprintf("-ac:a:%d", i), strconv.Itoa(a.Channels),
				fmt.Sprintf("-b:a:%d", i), fmt.Sprintf("%dk", a.BitrateKbps),
			)
			if a.SampleRate > 0 {
				args = append(args, fmt.Sprintf("-ar:a:%d", i), strconv.Itoa(a.SampleRate))
			}
		}
		args = appendStreamMetadata(args, "a", i, a.Language, a.Title)
		args = append(args, fmt.Sprintf("-disposition:a:%d", i), a.Disposition.String())
	}

	for i, s := range d.Subtitles {
		args = append(args, "-map", fmt.Sprintf("%d:%d", s.Input, s.SourceIndex))
		args = append(args, fmt.Sprintf("-c:s:%d", i), s.Codec)
		args = appendStreamMetadata(args, "s", i, s.Language, s.Title)
		args = append(args, fmt.Sprintf("-disposition:s:%d", i), s.Disposition.String())
	}
	if len(d.Subtitles) == 0 {
		args = append(args, "-sn")
	}

	for i, att := range d.Attachments {
		args = append(args,
			"-map", fmt.Sprintf("0:%d", att.SourceIndex),
			fmt.Sprintf("-c:t:%d", i), "copy",
			fmt.Sprintf("-metadata:s:t:%d", i), "filename="+att.Filename,
			fmt.Sprintf("-metadata:s:t:%d", i), "mimetype="+att.MimeType,
		)
	}

	args = append(args, "-map_chapters", "0")
	args = append(args, d.PostOptions...)
	if muxer := Muxer(d.Container); muxer != "" {
		args = append(args, "-f", muxer)
	}
	return append(args, "-y", output)
}

func appendVideo(args []string, v transcode.VideoOptions) []string {
	args = append(args, "-c:v", v.Codec)
	if v.Codec == "copy" {
		return appendStreamMetadata(args, "v", 0, "", v.Title)
	}
	if v.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(v.CRF))
	} else if v.BitrateKbps > 0 {
		args = append(args, "-b:v", fmt.Sprintf("%dk", v.BitrateKbps))
	}
	for _, opt := range [][2]string{
		{"-maxrate", v.MaxRate},
		{"-bufsize", v.BufSize},
		{"-profile:v", v.Profile},
		{"-preset", v.Preset},
		{"-tune", v.Tune},
		{"-pix_fmt", v.PixFmt},
	} {
		if opt[1] != "" {
			args = append(args, opt[0], opt[1])
		}
	}
	if order := strings.ToLower(v.FieldOrder); order != "" && order != "unknown" {
		args = append(args, "-field_order", order)
	}
	if v.Device != "" {
		args = append(args, "-filter_hw_device", v.Device)
	}
	if filter := videoFilter(v); filter != "" {
		args = append(args, "-vf", filter)
	}
	return appendStreamMetadata(args, "v", 0, "", v.Title)
}

// videoFilter chains the software filters, the scale and any hardware
// upload, in that order.
func videoFilter(v transcode.VideoOptions) string {
	parts := make([]string, 0, 3)
	if v.Filter != "" {
		parts = append(parts, v.Filter)
	}
	if v.Width > 0 {
		parts = append(parts, fmt.Sprintf("scale=%d:-2", v.Width))
	}
	if v.Upload != "" {
		parts = append(parts, v.Upload)
	}
	return strings.Join(parts, ",")
}

func appendStreamMetadata(args []string, kind string, index int, lang, title string) []string {
	spec := fmt.Sprintf("-metadata:s:%s:%d", kind, index)
	if lang != "" {
		args = append(args, spec, "language="+lang)
	}
	if title != "" {
		args = append(args, spec, "title="+title)
	}
	return args
}

// Muxer maps a container extension to the ffmpeg muxer name. Output is
// written under a temporary name, so the muxer cannot be inferred.
func Muxer(container string) string {
	switch strings.ToLower(strings.TrimPrefix(container, ".")) {
	case "mp4", "m4v":
		return "mp4"
	case "mov":
		return "mov"
	case "mkv":
		return "matroska"
	case "webm":
		return "webm"
	default:
		return ""
	}
}
