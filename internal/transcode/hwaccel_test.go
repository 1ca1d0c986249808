package transcode

import (
	"reflect"
	"testing"

	"mmt/internal/media/capabilities"
)

func TestPlanHWAccelSharedDevice(t *testing.T) {
	set := capabilities.Set(capabilities.NewStatic([]string{"vaapi"}, []string{"hevc_vaapi"}, []string{"h264_vaapi"}))
	settings := HWAccelSettings{
		Accels:        []string{"cuda", "vaapi"},
		Decoders:      []string{"h264_vaapi"},
		Devices:       map[string]string{"vaapi": "/dev/dri/renderD128"},
		OutputFormats: map[string]string{"vaapi": "vaapi"},
	}

	plan := PlanHWAccel(set, settings, "h264", "hevc_vaapi")

	want := []string{
		"-init_hw_device", "vaapi=mmt:/dev/dri/renderD128",
		"-hwaccel_device", "mmt",
		"-hwaccel", "vaapi",
		"-hwaccel_output_format", "vaapi",
		"-c:v", "h264_vaapi",
	}
	if !reflect.DeepEqual(plan.PreOptions, want) {
		t.Fatalf("pre options = %v, want %v", plan.PreOptions, want)
	}
	if plan.Accel != "vaapi" || plan.Decoder != "h264_vaapi" || plan.Device != "mmt" || plan.DecodeDevice != "" {
		t.Fatalf("unexpected plan %+v", plan)
	}
}

func TestPlanHWAccelSeparateEncodeDevice(t *testing.T) {
	set := capabilities.Set(capabilities.NewStatic([]string{"cuda"}, nil, []string{"h264_cuvid"}))
	settings := HWAccelSettings{
		Accels:  []string{"cuda"},
		Devices: map[string]string{"cuda": "0", "qsv": "/dev/dri/renderD129"},
	}

	plan := PlanHWAccel(set, settings, "h264", "hevc_qsv")

	want := []string{
		"-init_hw_device", "cuda=mmt:0",
		"-hwaccel_device", "mmt",
		"-hwaccel", "cuda",
		"-init_hw_device", "qsv=mmt2:/dev/dri/renderD129",
	}
	if !reflect.DeepEqual(plan.PreOptions, want) {
		t.Fatalf("pre options = %v, want %v", plan.PreOptions, want)
	}
	if plan.Decoder != "" {
		t.Fatalf("decoder not listed in settings should be ignored, got %q", plan.Decoder)
	}
	if plan.Device != "mmt2" || plan.DecodeDevice != "mmt" {
		t.Fatalf("expected encoder on mmt2 and decoder on mmt, got %+v", plan)
	}
}

func TestPlanHWAccelEncoderOnly(t *testing.T) {
	settings := HWAccelSettings{
		Accels:  []string{"vaapi"},
		Devices: map[string]string{"vaapi": "/dev/dri/renderD128"},
	}
	plan := PlanHWAccel(capabilities.Set{}, settings, "h264", "h264_vaapi")
	want := []string{"-init_hw_device", "vaapi=mmt:/dev/dri/renderD128"}
	if !reflect.DeepEqual(plan.PreOptions, want) || plan.Accel != "" || plan.Device != "mmt" {
		t.Fatalf("unexpected plan %+v", plan)
	}
}

func TestPlanHWAccelNothingApplies(t *testing.T) {
	plan := PlanHWAccel(capabilities.Set{}, HWAccelSettings{Accels: []string{"vaapi"}}, "h264", "libx264")
	if len(plan.PreOptions) != 0 || plan.Accel != "" || plan.Device != "" {
		t.Fatalf("expected empty plan, got %+v", plan)
	}
}

func TestVideoEncoderAndHardwareDetection(t *testing.T) {
	cases := map[string]string{"h264": "libx264", "HEVC": "libx265", "x265": "libx265", "hevc_nvenc": "hevc_nvenc"}
	for in, want := range cases {
		if got := VideoEncoder(in); got != want {
			t.Errorf("VideoEncoder(%q) = %q, want %q", in, got, want)
		}
	}
	if !IsHardwareEncoder("h264_vaapi") || IsHardwareEncoder("libx264") {
		t.Fatal("hardware encoder detection mismatch")
	}
	if HWDecoderName("hevc", "cuda") != "hevc_cuvid" || HWDecoderName("h264", "qsv") != "h264_qsv" {
		t.Fatal("decoder naming mismatch")
	}
}
