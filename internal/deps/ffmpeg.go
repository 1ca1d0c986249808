package deps

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const versionTimeout = 5 * time.Second

// Tools resolves ffmpeg and its matching ffprobe, reading each banner version.
func Tools(ctx context.Context, ffmpegBinary, ffprobeBinary string) []Tool {
	tools := []Tool{Lookup("FFmpeg", ffmpegBinary), ResolveProbe(ffmpegBinary, ffprobeBinary)}
	for i := range tools {
		if tools[i].Found {
			tools[i].Version = Version(ctx, tools[i].Command)
		}
	}
	return tools
}

// ResolveProbe picks the ffprobe to pair with ffmpegBinary. An explicitly
// configured prober wins; otherwise one installed beside the resolved
// ffmpeg is preferred over whatever PATH offers, so custom builds probe
// with their own ffprobe.
func ResolveProbe(ffmpegBinary, ffprobeBinary string) Tool {
	if configured := strings.TrimSpace(ffprobeBinary); configured != "" && configured != "ffprobe" {
		return Lookup("FFprobe", configured)
	}
	if resolved, err := exec.LookPath(strings.TrimSpace(ffmpegBinary)); err == nil {
		sibling := filepath.Join(filepath.Dir(resolved), "ffprobe")
		if info, err := os.Stat(sibling); err == nil && !info.IsDir() && info.Mode().Perm()&0o111 != 0 {
			return Tool{Name: "FFprobe", Command: sibling, Found: true}
		}
	}
	return Lookup("FFprobe", "ffprobe")
}

// Version runs "<command> -version" and returns the token after
// "version" on the first line, or "" when the banner is unrecognised.
func Version(ctx context.Context, command string) string {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, command, "-version").Output()
	if err != nil {
		return ""
	}
	line, _, _ := bytes.Cut(out, []byte("\n"))
	scanner := bufio.NewScanner(bytes.NewReader(line))
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		if scanner.Text() == "version" && scanner.Scan() {
			return scanner.Text()
		}
	}
	return ""
}
