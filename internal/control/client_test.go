package control_test

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"burnloop/internal/control"
)

// fakeApp answers datagrams on a loopback command endpoint. The reply for
// each received payload comes from the handler; an empty reply means stay
// silent.
type fakeApp struct {
	conn net.PacketConn
	done chan struct{}
}

func newFakeApp(t *testing.T, handler func(payload string) string) *fakeApp {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("bind fake app: %v", err)
	}
	app := &fakeApp{conn: conn, done: make(chan struct{})}
	go func() {
		defer close(app.done)
		buf := make([]byte, 512)
		for {
			n, addr, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			if reply := handler(string(buf[:n])); reply != "" {
				conn.WriteTo([]byte(reply), addr)
			}
		}
	}()
	t.Cleanup(func() {
		conn.Close()
		<-app.done
	})
	return app
}

func (a *fakeApp) addr() string {
	return a.conn.LocalAddr().String()
}

func TestRequestEncodings(t *testing.T) {
	cases := []struct {
		req  control.Request
		want string
	}{
		{control.Request{Kind: control.Ping}, "PING"},
		{control.Request{Kind: control.Status}, "STATUS"},
		{control.Request{Kind: control.Start}, "START"},
		{control.Request{Kind: control.ForceLoad, Path: "/tmp/layer-0.svg"}, "FORCELOAD:/tmp/layer-0.svg"},
	}
	for _, tc := range cases {
		if got := tc.req.Encode(); got != tc.want {
			t.Errorf("encode %v = %q, want %q", tc.req.Kind, got, tc.want)
		}
	}
}

func TestSendTrimsReply(t *testing.T) {
	app := newFakeApp(t, func(payload string) string {
		if payload != "STATUS" {
			t.Errorf("unexpected payload %q", payload)
		}
		return "idle\n"
	})
	client, err := control.Dial(app.addr(), "127.0.0.1:0", 500*time.Millisecond)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	reply, err := client.Send(context.Background(), control.Request{Kind: control.Status})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if reply != "idle" {
		t.Fatalf("reply = %q, want %q", reply, "idle")
	}
}

func TestSendTimesOutWhenSilent(t *testing.T) {
	app := newFakeApp(t, func(string) string { return "" })
	client, err := control.Dial(app.addr(), "127.0.0.1:0", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	_, err = client.Send(context.Background(), control.Request{Kind: control.Ping})
	if !errors.Is(err, control.ErrTimeout) {
		t.Fatalf("send error = %v, want ErrTimeout", err)
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	app := newFakeApp(t, func(string) string { return control.OK })
	client, err := control.Dial(app.addr(), "127.0.0.1:0", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := client.Send(context.Background(), control.Request{Kind: control.Ping}); !errors.Is(err, control.ErrClosed) {
		t.Fatalf("send error = %v, want ErrClosed", err)
	}
}

func TestCloseFreesReplyEndpointForRedial(t *testing.T) {
	app := newFakeApp(t, func(string) string { return control.OK })

	first, err := control.Dial(app.addr(), "127.0.0.1:0", 500*time.Millisecond)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	replyAddr := first.LocalAddr().String()
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := control.Dial(app.addr(), replyAddr, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("redial on %s: %v", replyAddr, err)
	}
	defer second.Close()

	reply, err := second.Send(context.Background(), control.Request{Kind: control.Ping})
	if err != nil {
		t.Fatalf("send after rebind: %v", err)
	}
	if reply != control.OK {
		t.Fatalf("reply = %q, want %q", reply, control.OK)
	}
}

func TestHandshakeWaitsForFirstAnswer(t *testing.T) {
	var calls atomic.Int32
	app := newFakeApp(t, func(payload string) string {
		if calls.Add(1) < 3 {
			return ""
		}
		return control.OK
	})
	client, err := control.Dial(app.addr(), "127.0.0.1:0", 30*time.Millisecond)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Handshake(ctx, 10*time.Millisecond); err != nil {
		t.Fatalf("handshake: %v", err)
	}
	if n := calls.Load(); n < 3 {
		t.Fatalf("handshake answered after %d pings, want at least 3", n)
	}
}

func TestHandshakeHonorsDeadline(t *testing.T) {
	app := newFakeApp(t, func(string) string { return "" })
	client, err := control.Dial(app.addr(), "127.0.0.1:0", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	err = client.Handshake(ctx, 10*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("handshake error = %v, want deadline exceeded", err)
	}
}
