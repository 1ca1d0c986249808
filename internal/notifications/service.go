package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"mmt/internal/config"
)

const (
	userAgent       = "mmt/1.0"
	defaultNtfyHost = "https://ntfy.sh/"
)

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyProcessingStarted(ctx context.Context, source string, tiers int) error
	NotifyTierCompleted(ctx context.Context, source string, tier int, output string) error
	NotifyProcessingCompleted(ctx context.Context, source string, outputs int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: Endpoint(topic),
		client:   &http.Client{Timeout: timeout},
		events:   cfg.Notifications,
	}
}

// Endpoint expands a bare topic name to its ntfy.sh URL.
func Endpoint(topic string) string {
	topic = strings.TrimSpace(topic)
	if strings.Contains(topic, "://") {
		return topic
	}
	return defaultNtfyHost + strings.TrimPrefix(topic, "/")
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	events   config.Notifications
}

func (n *ntfyService) NotifyProcessingStarted(ctx context.Context, source string, tiers int) error {
	if !n.events.Started {
		return nil
	}
	message := fmt.Sprintf("▶️ Processing %s", displayName(source))
	if tiers > 1 {
		message = fmt.Sprintf("%s (%d tiers)", message, tiers)
	}
	return n.send(ctx, payload{
		title:   "MMT - Started",
		message: message,
		tags:    []string{"mmt", "transcode", "started"},
	})
}

func (n *ntfyService) NotifyTierCompleted(ctx context.Context, source string, tier int, output string) error {
	if !n.events.TierCompleted {
		return nil
	}
	message := fmt.Sprintf("🎞️ %dp ready: %s", tier, displayName(source))
	if output = strings.TrimSpace(output); output != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, output)
	}
	return n.send(ctx, payload{
		title:   "MMT - Tier Complete",
		message: message,
		tags:    []string{"mmt", "transcode", fmt.Sprintf("%dp", tier)},
	})
}

func (n *ntfyService) NotifyProcessingCompleted(ctx context.Context, source string, outputs int, duration time.Duration) error {
	if !n.events.Completed {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	noun := "outputs"
	if outputs == 1 {
		noun = "output"
	}
	return n.send(ctx, payload{
		title:    "MMT - Complete",
		message:  fmt.Sprintf("✅ %s: %d %s in %s", displayName(source), outputs, noun, duration),
		tags:     []string{"mmt", "transcode", "completed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.events.Errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "MMT - Error",
		message:  builder.String(),
		tags:     []string{"mmt", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "MMT - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"mmt", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func displayName(source string) string {
	source = strings.TrimSpace(source)
	if source == "" {
		return "unknown"
	}
	return filepath.Base(source)
}

type noopService struct{}

func (noopService) NotifyProcessingStarted(context.Context, string, int) error { return nil }
func (noopService) NotifyTierCompleted(context.Context, string, int, string) error {
	return nil
}
func (noopService) NotifyProcessingCompleted(context.Context, string, int, time.Duration) error {
	return nil
}
func (noopService) NotifyError(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }
