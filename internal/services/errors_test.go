package services_test

import (
	"errors"
	"strings"
	"testing"

	"mmt/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "encode", "ffmpeg", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"encode", "ffmpeg", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestRecoverableClassification(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   bool
		status string
	}{
		{"nil", nil, true, "completed"},
		{"invalid source", services.Wrap(services.ErrInvalidSource, "validate", "", "too small", nil), true, "skipped"},
		{"encode", services.Wrap(services.ErrEncodeFailed, "encode", "1080p", "", errors.New("exit 1")), true, "partial"},
		{"tagging", services.Wrap(services.ErrTagging, "tag", "", "", nil), true, "failed"},
		{"no audio", services.Wrap(services.ErrNoAudioStreams, "plan", "", "", nil), false, "failed"},
		{"config", services.Wrap(services.ErrConfiguration, "", "", "bad", nil), false, "failed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.IsRecoverable(tc.err); got != tc.want {
				t.Fatalf("IsRecoverable = %v, want %v", got, tc.want)
			}
			if got := services.FailureStatus(tc.err); got != tc.status {
				t.Fatalf("FailureStatus = %q, want %q", got, tc.status)
			}
		})
	}
}
