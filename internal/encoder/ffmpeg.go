package encoder

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"mmt/internal/logging"
	"mmt/internal/services"
	"mmt/internal/transcode"
)

var commandContext = exec.CommandContext

const stderrTailLines = 20

// FFmpeg runs the ffmpeg executable.
type FFmpeg struct {
	Binary string
	Logger *slog.Logger
}

// New returns an FFmpeg using binary ("ffmpeg" when empty).
func New(binary string, logger *slog.Logger) *FFmpeg {
	return &FFmpeg{Binary: binary, Logger: logger}
}

func (f *FFmpeg) binary() string {
	if f == nil || strings.TrimSpace(f.Binary) == "" {
		return "ffmpeg"
	}
	return f.Binary
}

func (f *FFmpeg) logger() *slog.Logger {
	if f == nil || f.Logger == nil {
		return logging.NewNop()
	}
	return f.Logger
}

// Convert encodes directive into output, calling progress for every stats
// line. A non-zero exit is reported as ErrEncodeFailed carrying the last
// lines ffmpeg printed.
func (f *FFmpeg) Convert(ctx context.Context, d transcode.Directive, output string, progress func(Progress)) error {
	args := Args(d, output)
	logger := logging.WithContext(ctx, f.logger())
	logger.Info("launching ffmpeg encode",
		logging.String("command", commandLine(f.binary(), args)),
		logging.String("output", output),
	)

	cmd := commandContext(ctx, f.binary(), args...) //nolint:gosec
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return services.Wrap(services.ErrEncodeFailed, "encode", "stderr pipe", "", err)
	}
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrEncodeFailed, "encode", "start ffmpeg", "", err)
	}

	total := time.Duration(d.Duration * float64(time.Second))
	sampler := logging.NewProgressSampler(10)
	tail := newTailBuffer(stderrTailLines)
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(scanStatsLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if p, ok := ParseProgress(line, total); ok {
			if progress != nil {
				progress(p)
			}
			if sampler.ShouldLog(p.Percent, d.Tier.String()) {
				logger.Info("ffmpeg progress",
					logging.Float64("progress_percent", p.Percent),
					logging.Float64("speed", p.Speed),
					logging.Duration("progress_eta", p.ETA),
				)
			}
			continue
		}
		tail.add(line)
	}
	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(io.Discard, stderr)
		logger.Debug("ffmpeg stderr scan stopped", logging.Error(err))
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrEncodeFailed, "encode", "ffmpeg", "cancelled", ctx.Err())
		}
		return services.Wrap(services.ErrEncodeFailed, "encode", "ffmpeg", tail.String(), err)
	}
	return nil
}

// Rip extracts one subtitle stream of source into path.
func (f *FFmpeg) Rip(ctx context.Context, source string, rip transcode.RipEntry, path string) error {
	codec := rip.Codec
	if codec == "" {
		codec = "copy"
	}
	args := []string{
		"-hide_banner", "-v", "error",
		"-i", source,
		"-map", fmt.Sprintf("0:%d", rip.SourceIndex),
		"-c:s", codec,
		"-y", path,
	}
	if _, err := f.run(ctx, args); err != nil {
		return services.Wrap(services.ErrExternalTool, "rip", "extract subtitle", fmt.Sprintf("stream %d", rip.SourceIndex), err)
	}
	return nil
}

// TextConvertible reports whether a subtitle stream survives a short
// conversion to srt. Bitmap subtitles fail that conversion. Only a failure
// to run ffmpeg at all is returned as an error.
func (f *FFmpeg) TextConvertible(ctx context.Context, source string, streamIndex int) (bool, error) {
	args := []string{
		"-hide_banner", "-v", "error",
		"-i", source,
		"-map", fmt.Sprintf("0:%d", streamIndex),
		"-t", "1",
		"-c:s", "srt",
		"-f", "srt",
		"-y", "-",
	}
	_, err := f.run(ctx, args)
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return false, nil
	}
	return false, err
}

// IsImageBased implements transcode.Classifier.
func (f *FFmpeg) IsImageBased(ctx context.Context, path string, streamIndex int) (bool, error) {
	ok, err := f.TextConvertible(ctx, path, streamIndex)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// Remux stream-copies input into output with extra output options, such as
// -metadata pairs.
func (f *FFmpeg) Remux(ctx context.Context, input, output string, extra ...string) error {
	args := []string{"-hide_banner", "-v", "error", "-i", input, "-map", "0", "-c", "copy"}
	args = append(args, extra...)
	args = append(args, "-y", output)
	if _, err := f.run(ctx, args); err != nil {
		return services.Wrap(services.ErrExternalTool, "remux", "ffmpeg", "", err)
	}
	return nil
}

func (f *FFmpeg) run(ctx context.Context, args []string) ([]byte, error) {
	cmd := commandContext(ctx, f.binary(), args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, lastLines(msg, 5))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// scanStatsLines splits on \n and on the bare \r ffmpeg uses to redraw its
// stats line.
func scanStatsLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

type tailBuffer struct {
	limit int
	lines []string
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) add(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.limit {
		t.lines = t.lines[len(t.lines)-t.limit:]
	}
}

func (t *tailBuffer) String() string {
	return strings.Join(t.lines, "\n")
}

func lastLines(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func commandLine(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, binary)
	for _, arg := range args {
		if strings.ContainsAny(arg, " \t\"") {
			arg = fmt.Sprintf("%q", arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// CommandLine renders the full ffmpeg invocation for a directive, for
// display in dry runs.
func (f *FFmpeg) CommandLine(d transcode.Directive, output string) string {
	return commandLine(f.binary(), Args(d, output))
}
