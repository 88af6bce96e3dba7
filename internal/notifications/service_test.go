package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"burnloop/internal/config"
	"burnloop/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifySessionStarted(context.Background(), "sess-1", 2); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsRequests(t *testing.T) {
	type captured struct {
		title    string
		tags     string
		priority string
		body     string
	}
	var got captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	if err := svc.NotifySessionStopped(ctx, "sess-1", 7, 90*time.Second); err != nil {
		t.Fatalf("notify stopped: %v", err)
	}
	if got.title != "Burnloop - Session Stopped" {
		t.Errorf("title = %q", got.title)
	}
	if got.body != "Session sess-1 stopped after 7 layer advances in 1m30s" {
		t.Errorf("body = %q", got.body)
	}
	if got.tags != "burnloop,session,stopped" {
		t.Errorf("tags = %q", got.tags)
	}

	if err := svc.NotifyTriggerDegraded(ctx, "/dev/ttyUSB0"); err != nil {
		t.Fatalf("notify degraded: %v", err)
	}
	if got.priority != "high" {
		t.Errorf("degraded priority = %q, want high", got.priority)
	}

	if err := svc.NotifyError(ctx, errors.New("boom"), "session start"); err != nil {
		t.Fatalf("notify error: %v", err)
	}
	if got.body != "Error with session start: boom" {
		t.Errorf("error body = %q", got.body)
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
