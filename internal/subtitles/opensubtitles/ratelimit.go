package opensubtitles

import (
	"context"
	"errors"
	"net"
	"time"

	"mmt/internal/services"
)

// Backoff settings for OpenSubtitles calls.
const (
	MaxRetries     = 4
	InitialBackoff = 2 * time.Second
	MaxBackoff     = 30 * time.Second
)

// Retry runs op until it succeeds, fails with a non-retriable error, or
// MaxRetries attempts are spent. The delay doubles from initial up to
// MaxBackoff.
func Retry(ctx context.Context, initial time.Duration, op func() error) error {
	delay := initial
	var err error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		if err = op(); err == nil || !IsRetriable(err) {
			return err
		}
		if attempt == MaxRetries-1 {
			break
		}
		if sleepErr := SleepWithContext(ctx, delay); sleepErr != nil {
			return sleepErr
		}
		delay *= 2
		if delay > MaxBackoff {
			delay = MaxBackoff
		}
	}
	return err
}

// SleepWithContext blocks for d, returning early if ctx is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRetriable reports whether err is marked transient or is a network
// timeout.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, services.ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
