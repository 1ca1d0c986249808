package transcode

import (
	"fmt"
	"sort"
	"strings"

	"mmt/internal/media/capabilities"
)

const (
	primaryDevice   = "mmt"
	secondaryDevice = "mmt2"
)

// HWAccelSettings lists accelerators in priority order plus per-accel
// devices and output formats.
type HWAccelSettings struct {
	Accels        []string
	Decoders      []string
	Devices       map[string]string
	OutputFormats map[string]string
}

// HWAccelPlan is the hardware acceleration outcome for one encode.
type HWAccelPlan struct {
	Accel        string
	Decoder      string
	PreOptions   []string
	Device       string
	DecodeDevice string
}

// PlanHWAccel selects the first configured accelerator the ffmpeg build
// supports for decoding, then attaches the encoder to a device. The
// decoder and encoder share one device when they resolve to the same
// path; otherwise the encoder gets a second one. The plan is empty when
// nothing applies.
func PlanHWAccel(set capabilities.Set, settings HWAccelSettings, sourceCodec, encoder string) HWAccelPlan {
	var plan HWAccelPlan
	var decodeDevicePath string
	for _, accel := range settings.Accels {
		if !set.HasHWAccel(accel) {
			continue
		}
		plan.Accel = accel
		if device := settings.Devices[accel]; device != "" {
			decodeDevicePath = device
			plan.PreOptions = append(plan.PreOptions,
				"-init_hw_device", fmt.Sprintf("%s=%s:%s", accel, primaryDevice, device),
				"-hwaccel_device", primaryDevice,
			)
		}
		plan.PreOptions = append(plan.PreOptions, "-hwaccel", accel)
		if format := settings.OutputFormats[accel]; format != "" {
			plan.PreOptions = append(plan.PreOptions, "-hwaccel_output_format", format)
		}
		decoder := HWDecoderName(sourceCodec, accel)
		if set.HasDecoder(decoder) && containsFold(settings.Decoders, decoder) {
			plan.Decoder = decoder
			plan.PreOptions = append(plan.PreOptions, "-c:v", decoder)
		}
		break
	}

	keys := make([]string, 0, len(settings.Devices))
	for key := range settings.Devices {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !strings.Contains(encoder, key) {
			continue
		}
		device := settings.Devices[key]
		switch {
		case decodeDevicePath == "":
			plan.PreOptions = append(plan.PreOptions, "-init_hw_device", fmt.Sprintf("%s=%s:%s", key, primaryDevice, device))
			plan.Device = primaryDevice
		case decodeDevicePath == device:
			plan.Device = primaryDevice
		default:
			plan.PreOptions = append(plan.PreOptions, "-init_hw_device", fmt.Sprintf("%s=%s:%s", key, secondaryDevice, device))
			plan.Device = secondaryDevice
			plan.DecodeDevice = primaryDevice
		}
		break
	}
	return plan
}

// HWDecoderName returns the ffmpeg decoder name for codec on accel.
func HWDecoderName(codec, accel string) string {
	switch accel {
	case "cuda", "nvdec":
		return codec + "_cuvid"
	default:
		return codec + "_" + accel
	}
}

// VideoEncoder maps a configured codec to an ffmpeg encoder name.
func VideoEncoder(codec string) string {
	switch strings.ToLower(codec) {
	case "h264", "x264", "avc":
		return "libx264"
	case "h265", "hevc", "x265":
		return "libx265"
	default:
		return strings.ToLower(codec)
	}
}

// IsHardwareEncoder reports whether encoder runs on an accelerator.
func IsHardwareEncoder(encoder string) bool {
	for _, suffix := range []string{"_vaapi", "_qsv", "_nvenc", "_videotoolbox", "_amf", "_v4l2m2m"} {
		if strings.HasSuffix(encoder, suffix) {
			return true
		}
	}
	return false
}

func isHEVC(encoder string) bool {
	return strings.Contains(encoder, "265") || strings.HasPrefix(encoder, "hevc")
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return true
		}
	}
	return false
}
