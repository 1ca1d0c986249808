package resolution

import (
	"fmt"
	"strconv"

	"mmt/internal/services"
)

// Tier is one rung of the output ladder, named by its nominal line count.
type Tier int

const (
	Tier4320 Tier = 4320
	Tier2160 Tier = 2160
	Tier1440 Tier = 1440
	Tier1080 Tier = 1080
	Tier720  Tier = 720
	Tier480  Tier = 480
	Tier360  Tier = 360
	Tier240  Tier = 240
)

// wideAspect is the width/height ratio above which the width table applies.
const wideAspect = 1.4

var ordered = []Tier{Tier4320, Tier2160, Tier1440, Tier1080, Tier720, Tier480, Tier360, Tier240}

// Profile holds the fixed encoding constants for a tier.
type Profile struct {
	Tier             Tier
	WideWidth        int
	NarrowWidth      int
	BitrateKbps      int
	MaxRate          string
	BufSize          string
	CodecProfile     string
	PixFmt           string
	AudioCeilingKbps int
}

var profiles = map[Tier]Profile{
	Tier4320: {Tier4320, 7680, 5760, 28600, "96640k", "144500k", "high", "yuv420p10le", 512},
	Tier2160: {Tier2160, 3840, 2880, 16100, "48512k", "72500k", "high", "yuv420p10le", 512},
	Tier1440: {Tier1440, 2560, 1920, 9000, "19968k", "29900k", "high", "yuv420p10le", 384},
	Tier1080: {Tier1080, 1920, 1440, 4900, "9856k", "14500k", "high", "yuv420p", 256},
	Tier720:  {Tier720, 1280, 960, 2850, "6336k", "9500k", "high", "yuv420p", 192},
	Tier480:  {Tier480, 854, 640, 1425, "3432k", "3500k", "main", "yuv420p", 128},
	Tier360:  {Tier360, 640, 480, 800, "928k", "1300k", "baseline", "yuv420p", 96},
	Tier240:  {Tier240, 426, 320, 500, "652k", "950k", "baseline", "yuv420p", 64},
}

// Tiers returns every tier in descending order.
func Tiers() []Tier {
	return append([]Tier(nil), ordered...)
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	_, ok := profiles[t]
	return ok
}

// Profile returns the encoding constants for t. Unknown tiers return the
// zero Profile.
func (t Tier) Profile() Profile {
	return profiles[t]
}

// Width returns the target output width for t given the source aspect.
func (t Tier) Width(wide bool) int {
	p := profiles[t]
	if wide {
		return p.WideWidth
	}
	return p.NarrowWidth
}

func (t Tier) String() string {
	return strconv.Itoa(int(t)) + "p"
}

// Title labels a video stream encoded at t, whatever the source aspect.
func (t Tier) Title() string {
	return StreamTitle(profiles[t].WideWidth, 0)
}

// ParseTier accepts "1080", "1080p", or "1080P".
func ParseTier(value string) (Tier, error) {
	trimmed := value
	if n := len(trimmed); n > 0 && (trimmed[n-1] == 'p' || trimmed[n-1] == 'P') {
		trimmed = trimmed[:n-1]
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil || !Tier(n).Valid() {
		return 0, fmt.Errorf("unknown resolution tier %q", value)
	}
	return Tier(n), nil
}

// IsWide reports whether the width table classifies the source. height
// must be positive.
func IsWide(width, height int) bool {
	return float64(width)/float64(height) > wideAspect
}

// Classify maps source pixel dimensions to their native tier.
func Classify(width, height int) (Tier, error) {
	if height <= 0 || width <= 0 {
		return 0, services.Wrap(services.ErrInvalidSource, "classify", "", fmt.Sprintf("invalid dimensions %dx%d", width, height), nil)
	}
	if IsWide(width, height) {
		return byWidth(width), nil
	}
	return byHeight(height), nil
}

func byWidth(width int) Tier {
	switch {
	case width > 6500:
		return Tier4320
	case width > 3500:
		return Tier2160
	case width > 2000:
		return Tier1440
	case width > 1800:
		return Tier1080
	case width > 1000:
		return Tier720
	case width > 700:
		return Tier480
	case width > 450:
		return Tier360
	default:
		return Tier240
	}
}

func byHeight(height int) Tier {
	switch {
	case height > 4000:
		return Tier4320
	case height > 2000:
		return Tier2160
	case height > 1300:
		return Tier1440
	case height > 950:
		return Tier1080
	case height > 650:
		return Tier720
	case height > 450:
		return Tier480
	case height >= 300:
		return Tier360
	default:
		return Tier240
	}
}

// Ladder returns every tier at or below the native tier of the source, in
// descending order.
func Ladder(width, height int) ([]Tier, error) {
	native, err := Classify(width, height)
	if err != nil {
		return nil, err
	}
	return LadderFrom(native), nil
}

// LadderFrom returns every known tier ≤ native in descending order.
func LadderFrom(native Tier) []Tier {
	ladder := make([]Tier, 0, len(ordered))
	for _, tier := range ordered {
		if tier <= native {
			ladder = append(ladder, tier)
		}
	}
	return ladder
}

// StreamTitle labels the video stream from the source dimensions.
func StreamTitle(width, height int) string {
	switch {
	case width >= 7600 || height >= 4300:
		return "4320p (8K)"
	case width >= 3800 || height >= 2100:
		return "2160p (4K)"
	case width >= 2530 || height >= 1400:
		return "1440p (2K)"
	case width >= 1900 || height >= 1060:
		return "1080p"
	case width >= 1260 || height >= 700:
		return "720p"
	case width >= 834 || height >= 460:
		return "480p"
	case width >= 620 || height >= 220:
		return "360p"
	default:
		return "240p"
	}
}
