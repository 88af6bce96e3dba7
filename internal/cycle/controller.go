package cycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"burnloop/internal/catalog"
	"burnloop/internal/control"
	"burnloop/internal/logging"
	"burnloop/internal/trigger"
)

// ErrStopped indicates the controller worker has already exited.
var ErrStopped = errors.New("cycle: controller stopped")

// Commander sends one control request and returns its reply. Implemented by
// control.Client.
type Commander interface {
	Send(ctx context.Context, req control.Request) (string, error)
}

// EventSource yields classified trigger events. Implemented by
// trigger.Source.
type EventSource interface {
	Next() (trigger.Event, string, bool, error)
	Reboot() error
	Device() string
	Close() error
}

// Options configures a Controller.
type Options struct {
	Catalog   *catalog.Catalog
	Commander Commander
	// OpenSource opens the trigger device. A failed open puts the session
	// into degraded mode instead of aborting; the worker retries on the
	// OpenRetry interval.
	OpenSource func() (EventSource, error)
	Logger     *slog.Logger

	// ConfirmPoll is the status poll interval while waiting for a load
	// confirmation. Settle is the pause after a confirmed load,
	// StartSettle the pause after issuing a start.
	ConfirmPoll  time.Duration
	Settle       time.Duration
	StartSettle  time.Duration
	DegradedPoll time.Duration
	OpenRetry    time.Duration

	// OnReady fires from the worker goroutine after each confirmed load.
	OnReady func(index, total int)
	// OnDegraded and OnRecovered fire from the worker goroutine when the
	// trigger device drops or comes back.
	OnDegraded  func(device string, err error)
	OnRecovered func(device string)
}

type requestKind int

const (
	reqAdvance requestKind = iota
	reqReboot
)

type request struct {
	kind  requestKind
	reply chan error
}

// Controller runs the layer cycle for one session. Create with New, drive
// with Run, interact through Advance, RebootTrigger and Snapshot.
type Controller struct {
	opts     Options
	logger   *slog.Logger
	requests chan request
	done     chan struct{}
	started  atomic.Bool

	mu       sync.Mutex
	state    State
	index    int
	degraded bool
	device   string
	advances int
}

// Snapshot is a point-in-time view of the controller.
type Snapshot struct {
	State    State
	Index    int
	Total    int
	Degraded bool
	Device   string
	Advances int
}

// New validates the options and returns an idle controller.
func New(opts Options) (*Controller, error) {
	if opts.Catalog == nil || opts.Catalog.Len() == 0 {
		return nil, errors.New("cycle: catalog must contain at least one artifact")
	}
	if opts.Commander == nil {
		return nil, errors.New("cycle: commander is required")
	}
	if opts.ConfirmPoll <= 0 {
		opts.ConfirmPoll = 50 * time.Millisecond
	}
	if opts.DegradedPoll <= 0 {
		opts.DegradedPoll = 100 * time.Millisecond
	}
	if opts.OpenRetry <= 0 {
		opts.OpenRetry = 2 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "cycle"),
		requests: make(chan request),
		done:     make(chan struct{}),
		state:    StateIdle,
	}, nil
}

// Snapshot returns the current controller view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:    c.state,
		Index:    c.index,
		Total:    c.opts.Catalog.Len(),
		Degraded: c.degraded,
		Device:   c.device,
		Advances: c.advances,
	}
}

// Done is closed when the worker has exited and all resources are released.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Advance performs the same index-increment and load/confirm sequence as a
// falling trigger edge. The work is handed to the worker goroutine so it
// can never race with a trigger-driven cycle.
func (c *Controller) Advance(ctx context.Context) error {
	return c.submit(ctx, reqAdvance)
}

// RebootTrigger asks the trigger firmware to reset itself.
func (c *Controller) RebootTrigger(ctx context.Context) error {
	return c.submit(ctx, reqReboot)
}

func (c *Controller) submit(ctx context.Context, kind requestKind) error {
	req := request{kind: kind, reply: make(chan error, 1)}
	select {
	case c.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}
}

// Run executes the cycle until ctx is cancelled. It is the single owner of
// the trigger source and the layer index. Run returns nil on a clean stop;
// resources are released on every exit path.
func (c *Controller) Run(ctx context.Context) error {
	if c.started.Swap(true) {
		return errors.New("cycle: controller already ran")
	}
	defer c.finish()

	var src EventSource
	defer func() {
		if src != nil {
			if err := src.Close(); err != nil {
				c.logger.Warn("failed to close trigger source", logging.Error(err))
			}
		}
	}()
	src = c.openSource()

	if !c.loadAndConfirm(ctx, 0) {
		c.transition(StateStopping)
		return nil
	}
	c.logger.Info("start command for initial layer",
		logging.String(logging.FieldEventType, "cycle_started"),
		logging.Int(logging.FieldLayerTotal, c.opts.Catalog.Len()))
	c.sendStart(ctx)
	c.transition(StateRunning)
	c.notifyReady(0)

	nextRetry := time.Now().Add(c.opts.OpenRetry)
	for {
		select {
		case <-ctx.Done():
			c.transition(StateStopping)
			return nil
		case req := <-c.requests:
			req.reply <- c.handle(ctx, req, src)
			continue
		default:
		}

		if src == nil {
			if !c.waitDegraded(ctx) {
				return nil
			}
			if time.Now().After(nextRetry) {
				nextRetry = time.Now().Add(c.opts.OpenRetry)
				src = c.openSource()
			}
			continue
		}

		ev, line, ok, err := src.Next()
		if err != nil {
			c.logger.Warn("trigger read failed, entering degraded mode",
				logging.Error(err),
				logging.String(logging.FieldEventType, "trigger_degraded"),
				logging.String(logging.FieldDevice, src.Device()),
				logging.String(logging.FieldImpact, "manual advance only until the device returns"))
			device := src.Device()
			_ = src.Close()
			src = nil
			c.setDegraded(true, device)
			if c.opts.OnDegraded != nil {
				c.opts.OnDegraded(device, err)
			}
			nextRetry = time.Now().Add(c.opts.OpenRetry)
			continue
		}
		if !ok {
			continue
		}

		switch ev {
		case trigger.Falling:
			c.logger.Info("falling edge detected",
				logging.String(logging.FieldEventType, "trigger_falling"))
			if !c.step(ctx) {
				c.transition(StateStopping)
				return nil
			}
		case trigger.Rising:
			c.logger.Info("rising edge detected, start command sent",
				logging.String(logging.FieldEventType, "trigger_rising"))
			c.sendStart(ctx)
			if !sleepCtx(ctx, c.opts.StartSettle) {
				c.transition(StateStopping)
				return nil
			}
		default:
			c.logger.Debug("unrecognized trigger line ignored",
				logging.String("line", line))
		}
	}
}

// handle executes one control-surface request inside the worker context.
func (c *Controller) handle(ctx context.Context, req request, src EventSource) error {
	switch req.kind {
	case reqAdvance:
		c.logger.Info("manual advance requested",
			logging.String(logging.FieldEventType, "manual_advance"))
		if !c.step(ctx) {
			return ctx.Err()
		}
		return nil
	case reqReboot:
		if src == nil {
			return errors.New("cycle: trigger device unavailable")
		}
		return src.Reboot()
	default:
		return fmt.Errorf("cycle: unknown request kind %d", req.kind)
	}
}

// step advances the index by one with wraparound and reloads. Returns false
// when cancelled mid-sequence.
func (c *Controller) step(ctx context.Context) bool {
	c.mu.Lock()
	next := (c.index + 1) % c.opts.Catalog.Len()
	c.mu.Unlock()

	if !c.loadAndConfirm(ctx, next) {
		return false
	}
	c.mu.Lock()
	c.advances++
	c.mu.Unlock()
	c.transition(StateRunning)
	c.notifyReady(next)
	return true
}

// loadAndConfirm issues the force load for index i and polls status until
// the canonical confirmation arrives. Cancellation is the only exit besides
// success; a silent or failing remote is polled indefinitely so an
// unattended run never fast-fails while the operator can still hit stop.
func (c *Controller) loadAndConfirm(ctx context.Context, i int) bool {
	c.transitionIndex(StateLoading, i)
	path := c.opts.Catalog.Artifact(i)
	c.logger.Info("force load",
		logging.String(logging.FieldEventType, "force_load"),
		logging.Int(logging.FieldLayerIndex, i),
		logging.String("artifact", path))

	if _, err := c.opts.Commander.Send(ctx, control.Request{Kind: control.ForceLoad, Path: path}); err != nil {
		if ctx.Err() != nil {
			return false
		}
		c.logger.Warn("force load request failed, polling for confirmation anyway",
			logging.Error(err),
			logging.Int(logging.FieldLayerIndex, i))
	}

	for {
		reply, err := c.opts.Commander.Send(ctx, control.Request{Kind: control.Status})
		if err == nil && reply == control.OK {
			break
		}
		if ctx.Err() != nil {
			return false
		}
		if err != nil && !errors.Is(err, control.ErrTimeout) {
			c.logger.Warn("status poll failed",
				logging.Error(err),
				logging.Int(logging.FieldLayerIndex, i))
		}
		if !sleepCtx(ctx, c.opts.ConfirmPoll) {
			return false
		}
	}

	c.transitionIndex(StateConfirmed, i)
	c.logger.Info("load confirmed",
		logging.String(logging.FieldEventType, "load_confirmed"),
		logging.Int(logging.FieldLayerIndex, i))
	return sleepCtx(ctx, c.opts.Settle)
}

func (c *Controller) sendStart(ctx context.Context) {
	if _, err := c.opts.Commander.Send(ctx, control.Request{Kind: control.Start}); err != nil && ctx.Err() == nil {
		c.logger.Warn("start command failed", logging.Error(err))
	}
}

// openSource opens the trigger device, entering or leaving degraded mode
// accordingly.
func (c *Controller) openSource() EventSource {
	if c.opts.OpenSource == nil {
		c.setDegraded(true, "")
		return nil
	}
	src, err := c.opts.OpenSource()
	if err != nil {
		c.logger.Warn("could not open trigger device",
			logging.Error(err),
			logging.String(logging.FieldEventType, "trigger_open_failed"),
			logging.String(logging.FieldErrorHint, "check the device path and permissions"),
			logging.String(logging.FieldImpact, "manual advance only until the device returns"))
		c.setDegraded(true, "")
		return nil
	}

	c.mu.Lock()
	wasDegraded := c.degraded
	c.mu.Unlock()

	c.setDegraded(false, src.Device())
	c.logger.Info("trigger device open",
		logging.String(logging.FieldEventType, "trigger_open"),
		logging.String(logging.FieldDevice, src.Device()))
	if wasDegraded && c.opts.OnRecovered != nil {
		c.opts.OnRecovered(src.Device())
	}
	return src
}

// waitDegraded idles one poll interval while staying responsive to requests
// and cancellation. Returns false when the session is cancelled.
func (c *Controller) waitDegraded(ctx context.Context) bool {
	timer := time.NewTimer(c.opts.DegradedPoll)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		c.transition(StateStopping)
		return false
	case req := <-c.requests:
		req.reply <- c.handle(ctx, req, nil)
		return true
	case <-timer.C:
		return true
	}
}

func (c *Controller) notifyReady(index int) {
	if c.opts.OnReady != nil {
		c.opts.OnReady(index, c.opts.Catalog.Len())
	}
}

func (c *Controller) transition(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *Controller) transitionIndex(state State, index int) {
	c.mu.Lock()
	c.state = state
	c.index = index
	c.mu.Unlock()
}

func (c *Controller) setDegraded(degraded bool, device string) {
	c.mu.Lock()
	c.degraded = degraded
	if device != "" {
		c.device = device
	}
	c.mu.Unlock()
}

func (c *Controller) finish() {
	c.transition(StateStopped)
	close(c.done)
}

// sleepCtx sleeps for d unless ctx is cancelled first. Returns false on
// cancellation. Non-positive durations return immediately.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
