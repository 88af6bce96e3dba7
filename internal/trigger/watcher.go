package trigger

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"burnloop/internal/logging"
)

// Watcher listens for udev netlink events on tty devices and reports when
// the configured trigger device appears or disappears. The daemon uses this
// to flag a degraded session and to prompt a reopen without polling the
// filesystem.
type Watcher struct {
	logger   *slog.Logger
	device   string
	onAdd    func(ctx context.Context, device string)
	onRemove func(ctx context.Context, device string)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewWatcher creates a watcher for the given device path. Returns nil when
// no device is configured, which callers treat as watching disabled.
func NewWatcher(logger *slog.Logger, device string, onAdd, onRemove func(ctx context.Context, device string)) *Watcher {
	device = strings.TrimSpace(device)
	if device == "" {
		return nil
	}
	return &Watcher{
		logger:   logging.NewComponentLogger(logger, "trigger-watcher"),
		device:   device,
		onAdd:    onAdd,
		onRemove: onRemove,
	}
}

// Start connects to the udev netlink socket and begins listening. A failed
// connect is non-fatal; the session falls back to timed reopen attempts.
func (w *Watcher) Start(ctx context.Context) error {
	if w == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		w.logger.Warn("failed to connect to netlink socket; device hotplug detection disabled",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the daemon has permission to access netlink sockets"),
			logging.String(logging.FieldImpact, "trigger reconnects rely on timed retries"),
		)
		return nil
	}

	w.conn = conn
	w.quit = make(chan struct{})
	w.running = true

	quit := w.quit
	go w.monitorLoop(ctx, quit)

	w.logger.Info("trigger watcher started",
		logging.String(logging.FieldEventType, "trigger_watcher_started"),
		logging.String(logging.FieldDevice, w.device),
	)

	return nil
}

// Stop shuts down the watcher.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	if w.quit != nil {
		close(w.quit)
		w.quit = nil
	}

	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}

	w.running = false

	w.logger.Info("trigger watcher stopped",
		logging.String(logging.FieldEventType, "trigger_watcher_stopped"),
	)
}

// Running reports whether the watcher is active.
func (w *Watcher) Running() bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	matcher := w.buildMatcher()

	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()

	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, matcher)

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			w.handleEvent(ctx, uevent)
		case err := <-errs:
			w.logger.Warn("trigger watcher error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "trigger_watcher_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "device hotplug detection may be affected"),
			)
		}
	}
}

// buildMatcher matches SUBSYSTEM=tty add and remove events.
func (w *Watcher) buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "tty",
		},
	})
	return rules
}

func (w *Watcher) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	devname := extractDeviceName(uevent)
	if devname == "" {
		w.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}

	if devname != w.device {
		w.logger.Debug("ignoring event for non-configured device",
			logging.String(logging.FieldDevice, devname),
			logging.String("configured_device", w.device),
		)
		return
	}

	switch uevent.Action {
	case netlink.ADD:
		w.logger.Info("trigger device attached",
			logging.String(logging.FieldEventType, "trigger_device_attached"),
			logging.String(logging.FieldDevice, devname),
		)
		if w.onAdd != nil {
			w.onAdd(ctx, devname)
		}
	case netlink.REMOVE:
		w.logger.Info("trigger device detached",
			logging.String(logging.FieldEventType, "trigger_device_detached"),
			logging.String(logging.FieldDevice, devname),
		)
		if w.onRemove != nil {
			w.onRemove(ctx, devname)
		}
	}
}

func extractDeviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/dev/") {
			return "/dev/" + devname
		}
		return devname
	}

	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}

	parts := strings.Split(devpath, "/")
	if len(parts) == 0 {
		return ""
	}
	return "/dev/" + parts[len(parts)-1]
}
