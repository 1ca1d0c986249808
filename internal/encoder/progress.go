package encoder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Progress is one parsed ffmpeg stats line. Percent and ETA are -1 and 0
// when the source duration is unknown.
type Progress struct {
	Elapsed time.Duration
	Speed   float64
	Percent float64
	ETA     time.Duration
}

var (
	timePattern  = regexp.MustCompile(`time=\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
	speedPattern = regexp.MustCompile(`speed=\s*([\d.]+)x`)
)

// ParseProgress extracts progress from an ffmpeg stats line. total is the
// source duration.
func ParseProgress(line string, total time.Duration) (Progress, bool) {
	match := timePattern.FindStringSubmatch(line)
	if match == nil {
		return Progress{}, false
	}
	hours, _ := strconv.Atoi(match[1])
	minutes, _ := strconv.Atoi(match[2])
	seconds, _ := strconv.ParseFloat(match[3], 64)
	elapsed := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds*float64(time.Second))

	p := Progress{Elapsed: elapsed, Percent: -1}
	if m := speedPattern.FindStringSubmatch(line); m != nil {
		p.Speed, _ = strconv.ParseFloat(m[1], 64)
	}
	if total > 0 {
		p.Percent = min(float64(elapsed)/float64(total)*100, 100)
		if p.Speed > 0 && elapsed < total {
			p.ETA = time.Duration(float64(total-elapsed) / p.Speed)
		}
	}
	return p, true
}

// Message renders p for humans, e.g. "Encoding 42.0% (ETA 3m10s, @ 2.1x)".
func (p Progress) Message() string {
	if p.Percent < 0 {
		return fmt.Sprintf("Encoding %s", formatETA(p.Elapsed))
	}
	base := fmt.Sprintf("Encoding %.1f%%", p.Percent)
	extras := make([]string, 0, 2)
	if formatted := formatETA(p.ETA); formatted != "" {
		extras = append(extras, "ETA "+formatted)
	}
	if p.Speed > 0 {
		extras = append(extras, fmt.Sprintf("@ %.1fx", p.Speed))
	}
	if len(extras) == 0 {
		return base
	}
	return fmt.Sprintf("%s (%s)", base, strings.Join(extras, ", "))
}

func formatETA(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	d = d.Round(time.Second)
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	parts := make([]string, 0, 3)
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || (hours == 0 && minutes == 0) {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, "")
}
