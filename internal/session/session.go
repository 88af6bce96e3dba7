// Package session assembles the moving parts of one run: artifact build,
// control channel, application launch and handshake, the cycle controller
// worker, hotplug watching, and unconditional teardown. The daemon holds at
// most one live session at a time.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"burnloop/internal/catalog"
	"burnloop/internal/config"
	"burnloop/internal/control"
	"burnloop/internal/cycle"
	"burnloop/internal/history"
	"burnloop/internal/launcher"
	"burnloop/internal/logging"
	"burnloop/internal/notifications"
	"burnloop/internal/trigger"
)

// Options carries everything Start needs. Input is the fully resolved
// catalog input; Lines keeps the raw operator texts for the history record.
type Options struct {
	Config   *config.Config
	Logger   *slog.Logger
	Input    catalog.Input
	Lines    [3]string
	Store    *history.Store
	Notifier notifications.Service
}

// Status is the session view reported over IPC.
type Status struct {
	ID        string
	StartedAt time.Time
	State     string
	Index     int
	Total     int
	Degraded  bool
	Device    string
	Advances  int
	Artifacts []string
}

// Session is one live run.
type Session struct {
	id        string
	startedAt time.Time
	catalog   *catalog.Catalog
	client    *control.Client
	ctrl      *cycle.Controller
	launch    *launcher.Launcher
	watcher   *trigger.Watcher
	store     *history.Store
	notifier  notifications.Service
	logger    *slog.Logger

	cancel   context.CancelFunc
	stopOnce sync.Once
}

// Start builds the catalog, binds the control channel, launches the
// application, and hands the session to the cycle worker. Any failure
// before the worker starts releases everything already acquired; a
// handshake failure in particular is fatal before any layer load.
func Start(ctx context.Context, opts Options) (*Session, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	id := uuid.NewString()
	logger = logger.With(logging.String(logging.FieldSessionID, id))

	cat, err := catalog.Build(cfg.Paths.JobsDir, opts.Input, catalog.Geometry{
		PrimaryCanvasMM:   cfg.Artifacts.PrimaryCanvasMM,
		SecondaryCanvasMM: cfg.Artifacts.SecondaryCanvasMM,
		Line3SpacingMM:    cfg.Artifacts.Line3SpacingMM,
	})
	if err != nil {
		return nil, fmt.Errorf("session: build catalog: %w", err)
	}

	// A fresh client per session: closing and rebinding the reply endpoint
	// keeps replies buffered for an earlier session out of this one.
	client, err := control.Dial(cfg.CommandAddr(), cfg.ReplyAddr(), cfg.CommandTimeout())
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	launch := launcher.New(launcher.Options{
		Executable:        cfg.Engraver.Executable,
		Logger:            logger,
		HandshakeInterval: cfg.HandshakeInterval(),
		HandshakeTimeout:  cfg.HandshakeTimeout(),
	})
	if err := launch.EnsureRunning(ctx, client); err != nil {
		client.Close()
		launch.ForceTerminate()
		notifier.NotifyError(ctx, err, "session start")
		return nil, err
	}

	ctrl, err := cycle.New(cycle.Options{
		Catalog:   cat,
		Commander: client,
		OpenSource: func() (cycle.EventSource, error) {
			return trigger.Open(trigger.Options{
				Device:      cfg.Trigger.Device,
				Baud:        cfg.Trigger.Baud,
				ReadTimeout: cfg.TriggerReadTimeout(),
				OpenSettle:  cfg.TriggerOpenSettle(),
			})
		},
		Logger:      logger,
		ConfirmPoll: cfg.ConfirmPoll(),
		Settle:      cfg.Settle(),
		StartSettle: cfg.StartSettle(),
		OpenRetry:   cfg.TriggerOpenRetry(),
		OnReady: func(index, total int) {
			logger.Info("layer ready",
				logging.String(logging.FieldEventType, "layer_ready"),
				logging.Int(logging.FieldLayerIndex, index),
				logging.Int(logging.FieldLayerTotal, total))
		},
		OnDegraded: func(device string, err error) {
			notifier.NotifyTriggerDegraded(context.Background(), device)
		},
		OnRecovered: func(device string) {
			notifier.NotifyTriggerRecovered(context.Background(), device)
		},
	})
	if err != nil {
		client.Close()
		launch.ForceTerminate()
		return nil, fmt.Errorf("session: %w", err)
	}

	sess := &Session{
		id:        id,
		startedAt: time.Now(),
		catalog:   cat,
		client:    client,
		ctrl:      ctrl,
		launch:    launch,
		store:     opts.Store,
		notifier:  notifier,
		logger:    logger,
	}

	sess.watcher = trigger.NewWatcher(logger, cfg.Trigger.Device,
		func(ctx context.Context, device string) {
			logger.Info("trigger device returned, reopen pending",
				logging.String(logging.FieldDevice, device))
		},
		func(ctx context.Context, device string) {
			logger.Warn("trigger device removed",
				logging.String(logging.FieldDevice, device),
				logging.String(logging.FieldImpact, "manual advance only until the device returns"))
		})

	if opts.Store != nil {
		record := history.Session{
			ID:            id,
			StartedAt:     sess.startedAt,
			TriggerDevice: cfg.Trigger.Device,
			Copies:        opts.Input.Copies,
			Lines:         opts.Lines,
			ArtifactCount: cat.Len(),
		}
		if err := opts.Store.Begin(ctx, record); err != nil {
			logger.Warn("failed to record session start", logging.Error(err))
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	sess.cancel = cancel
	go func() {
		if err := ctrl.Run(runCtx); err != nil {
			logger.Error("cycle worker failed", logging.Error(err))
		}
	}()
	_ = sess.watcher.Start(runCtx)

	notifier.NotifySessionStarted(ctx, id, cat.Len())
	logger.Info("session started",
		logging.String(logging.FieldEventType, "session_started"),
		logging.Int(logging.FieldLayerTotal, cat.Len()))
	return sess, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Status reports the current session view.
func (s *Session) Status() Status {
	snap := s.ctrl.Snapshot()
	return Status{
		ID:        s.id,
		StartedAt: s.startedAt,
		State:     snap.State.String(),
		Index:     snap.Index,
		Total:     snap.Total,
		Degraded:  snap.Degraded,
		Device:    snap.Device,
		Advances:  snap.Advances,
		Artifacts: s.catalog.Artifacts(),
	}
}

// Advance hands a manual layer advance to the cycle worker.
func (s *Session) Advance(ctx context.Context) error {
	return s.ctrl.Advance(ctx)
}

// RebootTrigger asks the trigger firmware to reset.
func (s *Session) RebootTrigger(ctx context.Context) error {
	return s.ctrl.RebootTrigger(ctx)
}

// Stop cancels the worker, waits for it to release the trigger source, then
// closes the control channel and force-terminates the application. Safe to
// call more than once; every resource is released on every path.
func (s *Session) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		snap := s.ctrl.Snapshot()
		s.cancel()
		select {
		case <-s.ctrl.Done():
		case <-ctx.Done():
			err = fmt.Errorf("session: worker did not stop: %w", ctx.Err())
		}
		s.watcher.Stop()
		s.client.Close()
		s.launch.ForceTerminate()

		if s.store != nil {
			if ferr := s.store.Finish(context.Background(), s.id, history.OutcomeStopped, "", snap.Advances); ferr != nil {
				s.logger.Warn("failed to record session end", logging.Error(ferr))
			}
		}
		s.notifier.NotifySessionStopped(context.Background(), s.id, snap.Advances, time.Since(s.startedAt))
		s.logger.Info("session stopped",
			logging.String(logging.FieldEventType, "session_stopped"),
			logging.Int("layer_advances", snap.Advances))
	})
	return err
}
