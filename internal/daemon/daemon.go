package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"burnloop/internal/catalog"
	"burnloop/internal/config"
	"burnloop/internal/history"
	"burnloop/internal/logging"
	"burnloop/internal/notifications"
	"burnloop/internal/presets"
	"burnloop/internal/session"
	"burnloop/internal/trigger"
)

// Daemon owns the stores and the current session.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *history.Store
	presets  *presets.Store
	stencils *presets.StencilStore
	notifier notifications.Service
	logPath  string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool

	mu       sync.Mutex
	sess     *session.Session
	starting bool
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	LockFilePath  string
	HistoryDBPath string
	TriggerDevice string
	Session       *session.Status
}

// LineRequest is one operator text line. An empty Preset selects the
// built-in preset for that line position. Color is consulted only for the
// second line, mirroring the operator color override; the first line is
// always rendered in the default palette entry.
type LineRequest struct {
	Text   string
	Preset string
	Color  string
}

// SessionRequest carries the operator input for a session start.
type SessionRequest struct {
	Lines  [3]LineRequest
	Copies int
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *history.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "burnloopd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		presets:  presets.NewStore(cfg.PresetsPath(), logger),
		stencils: presets.NewStencilStore(cfg.StencilsPath(), logger),
		notifier: notifications.NewService(cfg),
		logPath:  filepath.Join(cfg.Paths.LogDir, "burnloop.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another burnloop daemon instance is already running")
	}

	d.running.Store(true)
	d.logger.Info("burnloop daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop ends any live session and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.StopSession(ctx); err != nil && !errors.Is(err, ErrNoSession) {
		d.logger.Warn("failed to stop session during shutdown", logging.Error(err))
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("burnloop daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start has succeeded.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// LogPath returns the daemon log file location.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// StartSession resolves the operator input and launches a new session. The
// session slot is reserved before the launch and published after it, so the
// mutex is never held across the launcher handshake and status or stop
// requests stay responsive while a start is in flight.
func (d *Daemon) StartSession(ctx context.Context, req SessionRequest) (session.Status, error) {
	input, rawLines, err := d.resolveInput(req, time.Now())
	if err != nil {
		return session.Status{}, err
	}

	d.mu.Lock()
	if d.sess != nil || d.starting {
		d.mu.Unlock()
		return session.Status{}, ErrSessionActive
	}
	d.starting = true
	d.mu.Unlock()

	sess, err := session.Start(ctx, session.Options{
		Config:   d.cfg,
		Logger:   d.logger,
		Input:    input,
		Lines:    rawLines,
		Store:    d.store,
		Notifier: d.notifier,
	})

	d.mu.Lock()
	d.starting = false
	if err != nil {
		d.mu.Unlock()
		return session.Status{}, err
	}
	d.sess = sess
	d.mu.Unlock()
	return sess.Status(), nil
}

// StopSession tears down the live session.
func (d *Daemon) StopSession(ctx context.Context) error {
	d.mu.Lock()
	sess := d.sess
	d.sess = nil
	d.mu.Unlock()

	if sess == nil {
		return ErrNoSession
	}
	return sess.Stop(ctx)
}

// NextLayer performs a manual layer advance on the live session.
func (d *Daemon) NextLayer(ctx context.Context) (session.Status, error) {
	sess, err := d.currentSession()
	if err != nil {
		return session.Status{}, err
	}
	if err := sess.Advance(ctx); err != nil {
		return session.Status{}, err
	}
	return sess.Status(), nil
}

// RebootTrigger resets the trigger firmware on the live session.
func (d *Daemon) RebootTrigger(ctx context.Context) error {
	sess, err := d.currentSession()
	if err != nil {
		return err
	}
	return sess.RebootTrigger(ctx)
}

// SessionStatus returns the live session view.
func (d *Daemon) SessionStatus() (session.Status, error) {
	sess, err := d.currentSession()
	if err != nil {
		return session.Status{}, err
	}
	return sess.Status(), nil
}

// Status returns combined daemon and session information.
func (d *Daemon) Status() Status {
	st := Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		LockFilePath:  d.lockPath,
		HistoryDBPath: d.store.Path(),
		TriggerDevice: d.cfg.Trigger.Device,
	}
	d.mu.Lock()
	sess := d.sess
	d.mu.Unlock()
	if sess != nil {
		status := sess.Status()
		st.Session = &status
	}
	return st
}

// ListPorts enumerates serial devices on the host.
func (d *Daemon) ListPorts() ([]string, error) {
	return trigger.ListPorts()
}

// Presets returns the preset store.
func (d *Daemon) Presets() *presets.Store {
	return d.presets
}

// Stencils returns the stencil store.
func (d *Daemon) Stencils() *presets.StencilStore {
	return d.stencils
}

// History lists the most recent session records.
func (d *Daemon) History(ctx context.Context, limit int) ([]history.Session, error) {
	return d.store.List(ctx, limit)
}

// TestNotification sends a test push.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "no ntfy topic configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, err.Error(), err
	}
	return true, "notification sent", nil
}

func (d *Daemon) currentSession() (*session.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sess == nil {
		return nil, ErrNoSession
	}
	return d.sess, nil
}

// resolveInput turns the operator request into catalog input: presets are
// looked up per line, the first line gets the week stamp and is always
// rendered in the default palette entry, and the second line may carry a
// color override.
func (d *Daemon) resolveInput(req SessionRequest, now time.Time) (catalog.Input, [3]string, error) {
	input := catalog.Input{Copies: req.Copies}
	var rawLines [3]string

	for i, line := range req.Lines {
		text := strings.TrimSpace(line.Text)
		rawLines[i] = text
		if text == "" {
			continue
		}

		presetName := strings.TrimSpace(line.Preset)
		if presetName == "" {
			presetName = fmt.Sprintf("Preset %d", i+1)
		}
		params, ok := d.presets.Get(presetName)
		if !ok {
			return catalog.Input{}, rawLines, fmt.Errorf("%w: %q", ErrUnknownPreset, presetName)
		}
		style := params.Style()

		switch i {
		case 0:
			text = text + " " + catalog.WeekStamp(now)
			rawLines[0] = text
			style.Color = catalog.Silver
		case 1:
			if c := strings.TrimSpace(line.Color); c != "" {
				style.Color = catalog.NormalizeColor(c)
			}
		}

		input.Lines[i] = catalog.Line{Text: text, Style: style}
	}

	return input, rawLines, nil
}

// ResolveStencil maps a stencil name to its preset name.
func (d *Daemon) ResolveStencil(name string) (string, error) {
	preset, ok := d.stencils.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStencil, name)
	}
	return preset, nil
}
