// Package notifications pushes session lifecycle alerts to an ntfy topic
// when one is configured. Without a topic every call is a no-op.
package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"burnloop/internal/config"
)

const userAgent = "Burnloop/0.1.0"

// Service defines the notification surface exposed to the daemon.
type Service interface {
	NotifySessionStarted(ctx context.Context, sessionID string, artifactCount int) error
	NotifySessionStopped(ctx context.Context, sessionID string, layersCompleted int, duration time.Duration) error
	NotifyTriggerDegraded(ctx context.Context, device string) error
	NotifyTriggerRecovered(ctx context.Context, device string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
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
}

func (n *ntfyService) NotifySessionStarted(ctx context.Context, sessionID string, artifactCount int) error {
	data := payload{
		title:   "Burnloop - Session Started",
		message: fmt.Sprintf("Session %s running with %d layers", sessionID, artifactCount),
		tags:    []string{"burnloop", "session", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySessionStopped(ctx context.Context, sessionID string, layersCompleted int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	data := payload{
		title:   "Burnloop - Session Stopped",
		message: fmt.Sprintf("Session %s stopped after %d layer advances in %s", sessionID, layersCompleted, duration),
		tags:    []string{"burnloop", "session", "stopped"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTriggerDegraded(ctx context.Context, device string) error {
	device = strings.TrimSpace(device)
	if device == "" {
		device = "unknown"
	}
	data := payload{
		title:    "Burnloop - Trigger Offline",
		message:  fmt.Sprintf("Trigger device %s unavailable; manual advance only", device),
		tags:     []string{"burnloop", "trigger", "degraded"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTriggerRecovered(ctx context.Context, device string) error {
	data := payload{
		title:   "Burnloop - Trigger Recovered",
		message: fmt.Sprintf("Trigger device %s reconnected", strings.TrimSpace(device)),
		tags:    []string{"burnloop", "trigger", "recovered"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
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

	data := payload{
		title:    "Burnloop - Error",
		message:  builder.String(),
		tags:     []string{"burnloop", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Burnloop - Test",
		message:  "Notification system test",
		tags:     []string{"burnloop", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
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

type noopService struct{}

func (noopService) NotifySessionStarted(context.Context, string, int) error                 { return nil }
func (noopService) NotifySessionStopped(context.Context, string, int, time.Duration) error { return nil }
func (noopService) NotifyTriggerDegraded(context.Context, string) error                    { return nil }
func (noopService) NotifyTriggerRecovered(context.Context, string) error                   { return nil }
func (noopService) NotifyError(context.Context, error, string) error                       { return nil }
func (noopService) TestNotification(context.Context) error                                 { return nil }
