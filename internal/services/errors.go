package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")

	// ErrInvalidSource marks an unreadable source or one missing a video or
	// audio stream. The file is skipped.
	ErrInvalidSource = errors.New("invalid source")
	// ErrNoAudioStreams aborts every tier of the file.
	ErrNoAudioStreams = errors.New("no audio streams")
	// ErrEncodeFailed aborts one tier; earlier tiers keep their outputs.
	ErrEncodeFailed = errors.New("encode failed")
	// ErrSubtitleProbe skips a single subtitle candidate.
	ErrSubtitleProbe = errors.New("subtitle probe failed")
	// ErrHWAccelUnavailable degrades to the software path.
	ErrHWAccelUnavailable = errors.New("hardware acceleration unavailable")
	// ErrTagging leaves the output untagged.
	ErrTagging = errors.New("tagging failed")
	// ErrCleanup is logged and never escalated.
	ErrCleanup = errors.New("cleanup failed")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRecoverable reports whether processing may continue past err: with the
// next stream, the next tier, or without the optional step that failed.
func IsRecoverable(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrSubtitleProbe),
		errors.Is(err, ErrHWAccelUnavailable),
		errors.Is(err, ErrTagging),
		errors.Is(err, ErrCleanup),
		errors.Is(err, ErrInvalidSource),
		errors.Is(err, ErrEncodeFailed):
		return true
	default:
		return false
	}
}

// FailureStatus maps an error to the status recorded for a processed file.
func FailureStatus(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, ErrInvalidSource):
		return "skipped"
	case errors.Is(err, ErrEncodeFailed):
		return "partial"
	default:
		return "failed"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
