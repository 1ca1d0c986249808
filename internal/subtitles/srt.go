package subtitles

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Downloaded subtitles whose last cue ends further than this from the
// video's end are treated as belonging to another cut or release.
const (
	durationToleranceSeconds = 8.0
	mismatchOffsetSeconds    = 60.0
	mismatchRuntimeRatio     = 0.07
)

var adPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)opensubtitles`),
	regexp.MustCompile(`(?i)subtitles? by`),
	regexp.MustCompile(`(?i)synced? and corrected`),
	regexp.MustCompile(`(?i)advertise (your|yours?) product`),
	regexp.MustCompile(`(?i)http(s)?://`),
	regexp.MustCompile(`(?i)\bwww\.`),
	regexp.MustCompile(`(?i)\bsubscene\b`),
	regexp.MustCompile(`(?i)\byts\b`),
	regexp.MustCompile(`(?i)\byify\b`),
}

// CleanSRT drops advertisement cues, renumbers the rest and normalises
// line endings. It returns the cleaned document and the number of cues
// removed.
func CleanSRT(raw []byte) ([]byte, int) {
	content := strings.TrimSpace(strings.ReplaceAll(string(raw), "\r\n", "\n"))
	content = strings.TrimPrefix(content, "\ufeff")
	if content == "" {
		return []byte{}, 0
	}
	var (
		kept    []string
		removed int
	)
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		timing, text := splitCue(strings.Split(block, "\n"))
		if timing == "" {
			continue
		}
		if isAdvertisement(text) {
			removed++
			continue
		}
		cue := make([]string, 0, len(text)+2)
		cue = append(cue, strconv.Itoa(len(kept)+1), timing)
		cue = append(cue, text...)
		kept = append(kept, strings.Join(cue, "\n"))
	}
	if len(kept) == 0 {
		return []byte{}, removed
	}
	return []byte(strings.Join(kept, "\n\n") + "\n"), removed
}

// splitCue separates the timing line from the text lines of one block.
// The numeric counter line is optional.
func splitCue(lines []string) (string, []string) {
	start := 0
	if start < len(lines) && isNumeric(lines[start]) {
		start++
	}
	if start >= len(lines) || !strings.Contains(lines[start], "-->") {
		return "", nil
	}
	timing := strings.TrimSpace(lines[start])
	text := make([]string, 0, len(lines)-start-1)
	for _, line := range lines[start+1:] {
		if trimmed := strings.TrimRight(line, " \t"); strings.TrimSpace(trimmed) != "" {
			text = append(text, trimmed)
		}
	}
	return timing, text
}

func isAdvertisement(text []string) bool {
	payload := strings.TrimSpace(strings.Join(text, " "))
	if payload == "" {
		return false
	}
	for _, pattern := range adPatterns {
		if pattern.MatchString(payload) {
			return true
		}
	}
	return false
}

func isNumeric(value string) bool {
	_, err := strconv.Atoi(strings.TrimSpace(value))
	return err == nil
}

// CheckSRT reports problems with a subtitle document: no cues, no
// parseable timestamps, or a last cue that does not line up with a video
// of videoSeconds. An empty result means the document is usable.
func CheckSRT(data []byte, videoSeconds float64) []string {
	content := strings.TrimSpace(string(data))
	if content == "" {
		return []string{"empty_subtitle_file"}
	}

	var (
		last  float64
		found bool
	)
	for _, line := range strings.Split(content, "\n") {
		start, end, ok := strings.Cut(line, "-->")
		if !ok {
			continue
		}
		if _, err := parseTimestamp(start); err != nil {
			continue
		}
		seconds, err := parseTimestamp(end)
		if err != nil {
			continue
		}
		found = true
		last = math.Max(last, seconds)
	}
	if !found {
		return []string{"no_valid_timestamps"}
	}
	if videoSeconds > 0 && durationMismatch(videoSeconds, last) {
		return []string{fmt.Sprintf("duration_mismatch: delta=%.1fs", videoSeconds-last)}
	}
	return nil
}

// durationMismatch flags a last cue well past the end of the video, or
// one ending so early that a large share of the runtime has no subtitles.
func durationMismatch(videoSeconds, lastCue float64) bool {
	delta := math.Abs(videoSeconds - lastCue)
	if delta <= durationToleranceSeconds {
		return false
	}
	if lastCue > videoSeconds {
		return true
	}
	return delta >= mismatchOffsetSeconds && delta/videoSeconds >= mismatchRuntimeRatio
}

func parseTimestamp(value string) (float64, error) {
	if fields := strings.Fields(value); len(fields) > 0 {
		value = fields[0]
	}
	value = strings.ReplaceAll(value, ".", ",")
	clock, millisText, ok := strings.Cut(value, ",")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(millisText)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}
