package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mmt/internal/config"
	"mmt/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyProcessingStarted(context.Background(), "/in/movie.mkv", 1); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestEndpoint(t *testing.T) {
	if got := notifications.Endpoint("media-alerts"); got != "https://ntfy.sh/media-alerts" {
		t.Fatalf("bare topic = %q", got)
	}
	if got := notifications.Endpoint("http://ntfy.local/x"); got != "http://ntfy.local/x" {
		t.Fatalf("url topic = %q", got)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "started",
			send:          func(s notifications.Service) error { return s.NotifyProcessingStarted(context.Background(), "/in/Arrival (2016).mkv", 3) },
			expectTitle:   "MMT - Started",
			expectMessage: "▶️ Processing Arrival (2016).mkv (3 tiers)",
			expectTags:    "mmt,transcode,started",
		},
		{
			name: "tier completed",
			send: func(s notifications.Service) error {
				return s.NotifyTierCompleted(context.Background(), "/in/Arrival (2016).mkv", 1080, "/out/Arrival (2016)-1080p.mp4")
			},
			expectTitle:   "MMT - Tier Complete",
			expectMessage: "🎞️ 1080p ready: Arrival (2016).mkv\nFile: /out/Arrival (2016)-1080p.mp4",
			expectTags:    "mmt,transcode,1080p",
		},
		{
			name: "completed",
			send: func(s notifications.Service) error {
				return s.NotifyProcessingCompleted(context.Background(), "/in/Arrival (2016).mkv", 1, 90*time.Second+400*time.Millisecond)
			},
			expectTitle:    "MMT - Complete",
			expectMessage:  "✅ Arrival (2016).mkv: 1 output in 1m30s",
			expectTags:     "mmt,transcode,completed",
			expectPriority: "high",
		},
		{
			name:           "error",
			send:           func(s notifications.Service) error { return s.NotifyError(context.Background(), errors.New("encode failed"), "movie.mkv") },
			expectTitle:    "MMT - Error",
			expectMessage:  "❌ Error with movie.mkv: encode failed",
			expectTags:     "mmt,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5
			cfg.Notifications.TierCompleted = true

			if err := tc.send(notifications.NewService(&cfg)); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceIgnoresSuppressedEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for suppressed event: %s", r.Header.Get("Title"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Started = false
	cfg.Notifications.TierCompleted = false
	cfg.Notifications.Completed = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	ctx := context.Background()
	for _, err := range []error{
		svc.NotifyProcessingStarted(ctx, "a.mkv", 1),
		svc.NotifyTierCompleted(ctx, "a.mkv", 720, ""),
		svc.NotifyProcessingCompleted(ctx, "a.mkv", 1, time.Second),
		svc.NotifyError(ctx, errors.New("x"), ""),
	} {
		if err != nil {
			t.Fatalf("expected no error for suppressed event, got %v", err)
		}
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic closed", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	if err := notifications.NewService(&cfg).TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for 403")
	}
}
