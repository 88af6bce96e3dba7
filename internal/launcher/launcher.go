// Package launcher manages the external rendering application process. It
// spawns the executable, runs the readiness handshake over the control
// channel, and force-terminates the process when a session ends.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"

	"burnloop/internal/logging"
)

// ErrHandshakeFailed indicates the application never answered the readiness
// ping within the handshake deadline. Fatal to session start.
var ErrHandshakeFailed = errors.New("launcher: application handshake failed")

// Handshaker runs the readiness ping loop. Implemented by control.Client.
type Handshaker interface {
	Handshake(ctx context.Context, interval time.Duration) error
}

// Options configures a Launcher.
type Options struct {
	// Executable is the application binary path. Empty disables spawning;
	// EnsureRunning then only performs the handshake against an already
	// running instance.
	Executable string
	Logger     *slog.Logger

	HandshakeInterval time.Duration
	HandshakeTimeout  time.Duration
}

// Launcher spawns and terminates the external application.
type Launcher struct {
	opts   Options
	logger *slog.Logger
}

// New returns a launcher with defaults filled in.
func New(opts Options) *Launcher {
	if opts.HandshakeInterval <= 0 {
		opts.HandshakeInterval = 200 * time.Millisecond
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Launcher{opts: opts, logger: logging.NewComponentLogger(logger, "launcher")}
}

// EnsureRunning spawns the application (when configured) and blocks until
// the handshake succeeds or the deadline elapses. A failed handshake is
// fatal; no layer may be loaded afterwards.
func (l *Launcher) EnsureRunning(ctx context.Context, hs Handshaker) error {
	if l.opts.Executable != "" {
		cmd := exec.Command(l.opts.Executable)
		if err := cmd.Start(); err != nil {
			// The application may already be running; the handshake is
			// the authority on readiness.
			l.logger.Warn("could not spawn application",
				logging.Error(err),
				logging.String("executable", l.opts.Executable))
		} else {
			l.logger.Info("application spawned",
				logging.String(logging.FieldEventType, "app_spawned"),
				logging.String("executable", l.opts.Executable),
				logging.Int("pid", cmd.Process.Pid))
			go func() { _ = cmd.Wait() }()
		}
	}

	hsCtx, cancel := context.WithTimeout(ctx, l.opts.HandshakeTimeout)
	defer cancel()

	if err := hs.Handshake(hsCtx, l.opts.HandshakeInterval); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: no reply within %s", ErrHandshakeFailed, l.opts.HandshakeTimeout)
		}
		return fmt.Errorf("launcher: handshake: %w", err)
	}

	l.logger.Info("application ready",
		logging.String(logging.FieldEventType, "app_ready"))
	return nil
}

// ForceTerminate kills the application process by name. Best effort; the
// error is logged and swallowed because teardown must never fail on it.
func (l *Launcher) ForceTerminate() {
	if l.opts.Executable == "" {
		return
	}
	name := filepath.Base(l.opts.Executable)
	cmd := exec.Command("pkill", "-f", name)
	if err := cmd.Run(); err != nil {
		l.logger.Debug("force terminate",
			logging.Error(err),
			logging.String("process", name))
		return
	}
	l.logger.Info("application terminated",
		logging.String(logging.FieldEventType, "app_terminated"),
		logging.String("process", name))
}
