package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// OK is the canonical success reply token.
const OK = "OK"

// ErrTimeout indicates the remote application sent no reply within the
// per-request deadline. Callers own the retry policy; see Handshake for the
// bounded ping loop used at session startup.
var ErrTimeout = errors.New("control: reply timed out")

// ErrClosed indicates the client has been closed.
var ErrClosed = errors.New("control: client closed")

// Kind enumerates the request verbs the remote application understands.
type Kind int

const (
	// Ping checks liveness only.
	Ping Kind = iota
	// ForceLoad instructs the application to open the artifact at Path.
	ForceLoad
	// Status queries whether a job is currently executing.
	Status
	// Start begins executing the loaded artifact.
	Start
)

// Request is one protocol request. Path is consulted only for ForceLoad.
type Request struct {
	Kind Kind
	Path string
}

// Encode renders a request in its wire form.
func (r Request) Encode() string {
	switch r.Kind {
	case Ping:
		return "PING"
	case ForceLoad:
		return "FORCELOAD:" + r.Path
	case Status:
		return "STATUS"
	case Start:
		return "START"
	default:
		return ""
	}
}

// Client sends requests to the remote application's command endpoint and
// receives replies on a dedicated bound reply endpoint. At most one request
// is in flight at a time; concurrent callers are serialized.
type Client struct {
	commandAddr *net.UDPAddr
	timeout     time.Duration
	conn        net.PacketConn

	// mu serializes requests; closed is separate so Close can interrupt a
	// Send blocked on its reply.
	mu     sync.Mutex
	closed atomic.Bool
}

// Dial binds the local reply endpoint and resolves the remote command
// endpoint. The reply endpoint stays bound until Close so replies can only
// ever be consumed by this client.
func Dial(commandAddr, replyAddr string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("control: non-positive reply timeout %v", timeout)
	}
	remote, err := net.ResolveUDPAddr("udp", commandAddr)
	if err != nil {
		return nil, fmt.Errorf("control: resolve command address %q: %w", commandAddr, err)
	}
	conn, err := net.ListenPacket("udp", replyAddr)
	if err != nil {
		return nil, fmt.Errorf("control: bind reply address %q: %w", replyAddr, err)
	}
	return &Client{
		commandAddr: remote,
		timeout:     timeout,
		conn:        conn,
	}, nil
}

// LocalAddr reports the bound reply endpoint.
func (c *Client) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Send transmits one request and waits for a single reply datagram. The
// reply is returned with surrounding whitespace trimmed. A missed reply
// returns ErrTimeout; context cancellation wins over the deadline.
func (c *Client) Send(ctx context.Context, req Request) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return "", ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	payload := req.Encode()
	if payload == "" {
		return "", fmt.Errorf("control: unknown request kind %d", req.Kind)
	}
	if _, err := c.conn.WriteTo([]byte(payload), c.commandAddr); err != nil {
		return "", fmt.Errorf("control: send %q: %w", payload, err)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return "", fmt.Errorf("control: set read deadline: %w", err)
	}

	buf := make([]byte, 512)
	n, _, err := c.conn.ReadFrom(buf)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if c.closed.Load() {
			return "", ErrClosed
		}
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("control: read reply for %q: %w", payload, err)
	}
	return strings.TrimSpace(string(buf[:n])), nil
}

// SendOK sends a request and reports whether the reply was the success token.
func (c *Client) SendOK(ctx context.Context, req Request) (bool, error) {
	reply, err := c.Send(ctx, req)
	if err != nil {
		return false, err
	}
	return reply == OK, nil
}

// Handshake pings the remote application on the given interval until it
// answers OK or the context expires. Individual unanswered pings are
// expected while the application is still starting and are not surfaced.
func (c *Client) Handshake(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		ok, err := c.SendOK(ctx, Request{Kind: Ping})
		if err == nil && ok {
			return nil
		}
		if err != nil && !errors.Is(err, ErrTimeout) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close releases the reply endpoint. Any blocked Send unblocks with
// ErrClosed. Close is idempotent.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.conn.Close()
}
