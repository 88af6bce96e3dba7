package session_test

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"burnloop/internal/catalog"
	"burnloop/internal/config"
	"burnloop/internal/history"
	"burnloop/internal/launcher"
	"burnloop/internal/session"
)

// fakeEngraver emulates the marking application's command endpoint. When
// silent is set it never replies, which starves the handshake.
type fakeEngraver struct {
	conn   net.PacketConn
	silent bool

	mu    sync.Mutex
	loads []string
}

func newFakeEngraver(t *testing.T, silent bool) *fakeEngraver {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("bind fake engraver: %v", err)
	}
	e := &fakeEngraver{conn: conn, silent: silent}
	go e.serve()
	t.Cleanup(func() { conn.Close() })
	return e
}

func (e *fakeEngraver) serve() {
	buf := make([]byte, 512)
	for {
		n, addr, err := e.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		payload := string(buf[:n])
		if strings.HasPrefix(payload, "FORCELOAD:") {
			e.mu.Lock()
			e.loads = append(e.loads, strings.TrimPrefix(payload, "FORCELOAD:"))
			e.mu.Unlock()
		}
		if !e.silent {
			e.conn.WriteTo([]byte("OK"), addr)
		}
	}
}

func (e *fakeEngraver) port() int {
	return e.conn.LocalAddr().(*net.UDPAddr).Port
}

func (e *fakeEngraver) loadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.loads)
}

func testConfig(t *testing.T, commandPort int) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.JobsDir = filepath.Join(dir, "jobs")
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Engraver.Executable = ""
	cfg.Engraver.CommandHost = "127.0.0.1"
	cfg.Engraver.CommandPort = commandPort
	cfg.Engraver.ReplyPort = 0
	cfg.Engraver.CommandTimeoutMillis = 50
	cfg.Engraver.HandshakeIntervalMS = 10
	cfg.Engraver.HandshakeTimeoutSec = 1
	cfg.Engraver.ConfirmPollMillis = 1
	cfg.Engraver.SettleMillis = 0
	cfg.Engraver.StartSettleMillis = 0
	cfg.Trigger.Device = ""
	cfg.Notifications.NtfyTopic = ""
	return &cfg
}

func testInput() (catalog.Input, [3]string) {
	in := catalog.Input{Copies: 1}
	in.Lines[0] = catalog.Line{Text: "SN-100 0126", Style: catalog.Style{X: 50, Y: 50, FontSize: 5}}
	lines := [3]string{"SN-100 0126", "", ""}
	return in, lines
}

func TestSessionLifecycle(t *testing.T) {
	engraver := newFakeEngraver(t, false)
	cfg := testConfig(t, engraver.port())
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()

	in, lines := testInput()
	sess, err := session.Start(context.Background(), session.Options{
		Config: cfg,
		Input:  in,
		Lines:  lines,
		Store:  store,
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if sess.Status().State == "running" {
			break
		}
		time.Sleep(time.Millisecond)
	}
	status := sess.Status()
	if status.State != "running" {
		t.Fatalf("state = %s, want running", status.State)
	}
	if status.Total != 1 || len(status.Artifacts) != 1 {
		t.Fatalf("status = %+v, want one artifact", status)
	}
	if !status.Degraded {
		t.Fatal("session with no trigger device should be degraded")
	}

	if err := sess.Advance(context.Background()); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if got := sess.Status().Advances; got != 1 {
		t.Fatalf("advances = %d, want 1", got)
	}

	if err := sess.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	// Stop is idempotent.
	if err := sess.Stop(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}

	record, err := store.Get(context.Background(), sess.ID())
	if err != nil {
		t.Fatalf("history record: %v", err)
	}
	if record.Active() {
		t.Fatal("history record still active after stop")
	}
	if record.Outcome != history.OutcomeStopped || record.LayersCompleted != 1 {
		t.Fatalf("record = %+v", record)
	}
}

func TestHandshakeFailureIsFatalBeforeAnyLoad(t *testing.T) {
	engraver := newFakeEngraver(t, true)
	cfg := testConfig(t, engraver.port())
	cfg.Engraver.HandshakeTimeoutSec = 1

	in, lines := testInput()
	_, err := session.Start(context.Background(), session.Options{
		Config: cfg,
		Input:  in,
		Lines:  lines,
	})
	if !errors.Is(err, launcher.ErrHandshakeFailed) {
		t.Fatalf("err = %v, want ErrHandshakeFailed", err)
	}
	if got := engraver.loadCount(); got != 0 {
		t.Fatalf("loads before handshake = %d, want 0", got)
	}
}

func TestStartRejectsEmptyInput(t *testing.T) {
	engraver := newFakeEngraver(t, false)
	cfg := testConfig(t, engraver.port())

	_, err := session.Start(context.Background(), session.Options{
		Config: cfg,
		Input:  catalog.Input{Copies: 1},
	})
	if !errors.Is(err, catalog.ErrEmptyCatalog) {
		t.Fatalf("err = %v, want ErrEmptyCatalog", err)
	}
}
