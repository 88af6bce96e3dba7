package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"log/slog"

	"burnloop/internal/daemon"
	"burnloop/internal/logging"
	"burnloop/internal/logs"
	"burnloop/internal/presets"
	"burnloop/internal/session"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. The shutdown
// callback is invoked when a client requests daemon termination; it may be
// nil.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, shutdown func(), logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, shutdown: shutdown, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Burnloop", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun burnloop stop"))
	}
}

type service struct {
	daemon   *daemon.Daemon
	shutdown func()
	logger   *slog.Logger
	ctx      context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func convertSessionStatus(st session.Status) SessionStatus {
	return SessionStatus{
		ID:        st.ID,
		StartedAt: st.StartedAt,
		State:     st.State,
		Index:     st.Index,
		Total:     st.Total,
		Degraded:  st.Degraded,
		Device:    st.Device,
		Advances:  st.Advances,
		Artifacts: st.Artifacts,
	}
}

func (s *service) SessionStart(req SessionStartRequest, resp *SessionStartResponse) error {
	s.log().Debug("session start requested")
	dreq := daemon.SessionRequest{Copies: req.Copies}
	for i, line := range req.Lines {
		dreq.Lines[i] = daemon.LineRequest{
			Text:   line.Text,
			Preset: line.Preset,
			Color:  line.Color,
		}
	}
	status, err := s.daemon.StartSession(s.ctx, dreq)
	if err != nil {
		return err
	}
	resp.Session = convertSessionStatus(status)
	return nil
}

func (s *service) SessionStop(_ SessionStopRequest, resp *SessionStopResponse) error {
	s.log().Debug("session stop requested")
	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()
	if err := s.daemon.StopSession(ctx); err != nil {
		if errors.Is(err, daemon.ErrNoSession) {
			resp.Stopped = false
			resp.Message = "no active session"
			return nil
		}
		return err
	}
	resp.Stopped = true
	resp.Message = "session stopped"
	return nil
}

func (s *service) NextLayer(_ NextLayerRequest, resp *NextLayerResponse) error {
	s.log().Debug("manual layer advance requested")
	status, err := s.daemon.NextLayer(s.ctx)
	if err != nil {
		return err
	}
	resp.Session = convertSessionStatus(status)
	return nil
}

func (s *service) TriggerReboot(_ TriggerRebootRequest, resp *TriggerRebootResponse) error {
	s.log().Debug("trigger reboot requested")
	if err := s.daemon.RebootTrigger(s.ctx); err != nil {
		return err
	}
	resp.Done = true
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.PID = status.PID
	resp.LockPath = status.LockFilePath
	resp.HistoryDBPath = status.HistoryDBPath
	resp.TriggerDevice = status.TriggerDevice
	if status.Session != nil {
		converted := convertSessionStatus(*status.Session)
		resp.Session = &converted
	}
	return nil
}

func (s *service) Ports(_ PortsRequest, resp *PortsResponse) error {
	ports, err := s.daemon.ListPorts()
	if err != nil {
		return err
	}
	resp.Ports = ports
	return nil
}

func (s *service) PresetList(_ PresetListRequest, resp *PresetListResponse) error {
	all := s.daemon.Presets().All()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	resp.Presets = make([]Preset, 0, len(names))
	for _, name := range names {
		p := all[name]
		resp.Presets = append(resp.Presets, Preset{
			Name:   name,
			X:      p.X,
			Y:      p.Y,
			Font:   p.Font,
			Offset: p.Offset,
			Color:  p.Color,
		})
	}
	return nil
}

func (s *service) PresetSet(req PresetSetRequest, resp *PresetSetResponse) error {
	err := s.daemon.Presets().Put(req.Preset.Name, presets.Params{
		X:      req.Preset.X,
		Y:      req.Preset.Y,
		Font:   req.Preset.Font,
		Offset: req.Preset.Offset,
		Color:  req.Preset.Color,
	})
	if err != nil {
		return err
	}
	s.log().Info("preset saved",
		logging.String(logging.FieldEventType, "preset_set"),
		logging.String("preset", req.Preset.Name))
	return nil
}

func (s *service) PresetRemove(req PresetRemoveRequest, resp *PresetRemoveResponse) error {
	if err := s.daemon.Presets().Remove(req.Name); err != nil {
		return err
	}
	s.log().Info("preset removed",
		logging.String(logging.FieldEventType, "preset_remove"),
		logging.String("preset", req.Name))
	return nil
}

func (s *service) StencilList(_ StencilListRequest, resp *StencilListResponse) error {
	all := s.daemon.Stencils().All()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	resp.Stencils = make([]Stencil, 0, len(names))
	for _, name := range names {
		resp.Stencils = append(resp.Stencils, Stencil{Name: name, Preset: all[name]})
	}
	return nil
}

func (s *service) StencilSet(req StencilSetRequest, resp *StencilSetResponse) error {
	preset := strings.TrimSpace(req.Preset)
	if _, ok := s.daemon.Presets().Get(preset); !ok {
		return fmt.Errorf("%w: %q", daemon.ErrUnknownPreset, preset)
	}
	if err := s.daemon.Stencils().Put(req.Name, preset); err != nil {
		return err
	}
	s.log().Info("stencil saved",
		logging.String(logging.FieldEventType, "stencil_set"),
		logging.String("stencil", req.Name))
	return nil
}

func (s *service) StencilRemove(req StencilRemoveRequest, resp *StencilRemoveResponse) error {
	if err := s.daemon.Stencils().Remove(req.Name); err != nil {
		return err
	}
	s.log().Info("stencil removed",
		logging.String(logging.FieldEventType, "stencil_remove"),
		logging.String("stencil", req.Name))
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	records, err := s.daemon.History(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Sessions = make([]HistorySession, 0, len(records))
	for _, rec := range records {
		resp.Sessions = append(resp.Sessions, HistorySession{
			ID:              rec.ID,
			StartedAt:       rec.StartedAt,
			EndedAt:         rec.EndedAt,
			Active:          rec.Active(),
			TriggerDevice:   rec.TriggerDevice,
			Copies:          rec.Copies,
			Lines:           rec.Lines,
			ArtifactCount:   rec.ArtifactCount,
			LayersCompleted: rec.LayersCompleted,
			Outcome:         rec.Outcome,
			Error:           rec.Error,
		})
	}
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	options := logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	s.log().Info("daemon shutdown requested via IPC",
		logging.String(logging.FieldEventType, "daemon_shutdown_requested"))
	if s.shutdown != nil {
		s.shutdown()
		resp.Stopping = true
	}
	return nil
}
