package stream

import "strings"

// Disposition is the set of named boolean flags carried by a stream.
type Disposition struct {
	Default         bool
	Forced          bool
	Comment         bool
	HearingImpaired bool
	VisualImpaired  bool
	Dub             bool
}

// DispositionFromProbe reads ffprobe's disposition map.
func DispositionFromProbe(flags map[string]int) Disposition {
	return Disposition{
		Default:         flags["default"] == 1,
		Forced:          flags["forced"] == 1,
		Comment:         flags["comment"] == 1,
		HearingImpaired: flags["hearing_impaired"] == 1,
		VisualImpaired:  flags["visual_impaired"] == 1,
		Dub:             flags["dub"] == 1,
	}
}

// WithTitle sets flags implied by words in a stream title.
func (d Disposition) WithTitle(title string) Disposition {
	lower := strings.ToLower(title)
	if lower == "" {
		return d
	}
	if strings.Contains(lower, "comment") {
		d.Comment = true
	}
	if strings.Contains(lower, "hearing") {
		d.HearingImpaired = true
	}
	if strings.Contains(lower, "visual") {
		d.VisualImpaired = true
	}
	if strings.Contains(lower, "forced") {
		d.Forced = true
	}
	return d
}

// String renders the ffmpeg -disposition value: flags joined by "+", or
// "0" when none are set.
func (d Disposition) String() string {
	flags := make([]string, 0, 6)
	if d.Default {
		flags = append(flags, "default")
	}
	if d.Forced {
		flags = append(flags, "forced")
	}
	if d.Comment {
		flags = append(flags, "comment")
	}
	if d.HearingImpaired {
		flags = append(flags, "hearing_impaired")
	}
	if d.VisualImpaired {
		flags = append(flags, "visual_impaired")
	}
	if d.Dub {
		flags = append(flags, "dub")
	}
	if len(flags) == 0 {
		return "0"
	}
	return strings.Join(flags, "+")
}
