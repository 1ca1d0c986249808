package stream

import (
	"fmt"
	"strings"
)

// AudioTitle names an audio track by channel layout plus disposition.
func AudioTitle(channels int, d Disposition) string {
	var base string
	switch {
	case channels <= 1:
		base = "Mono"
	case channels == 2:
		base = "Stereo"
	default:
		base = fmt.Sprintf("%d.1 Channel", channels-1)
	}
	if d.Comment {
		base += " (Commentary)"
	}
	if d.HearingImpaired {
		base += " (Hearing Impaired)"
	}
	if d.VisualImpaired {
		base += " (Visual Impaired)"
	}
	if d.Dub {
		base += " (Dub)"
	}
	return base
}

// SubtitleTitle names a subtitle track from its disposition. Plain tracks
// get an empty title.
func SubtitleTitle(d Disposition) string {
	words := make([]string, 0, 5)
	if d.Forced {
		words = append(words, "Forced")
	}
	if d.HearingImpaired {
		words = append(words, "Hearing Impaired")
	}
	if d.Comment {
		words = append(words, "Commentary")
	}
	if d.VisualImpaired {
		words = append(words, "Visual Impaired")
	}
	if d.Dub {
		words = append(words, "Dub")
	}
	return strings.Join(words, " ")
}
