package trigger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Event classifies one line received from the trigger firmware.
type Event int

const (
	// None means the line carried no recognized marker.
	None Event = iota
	// Rising is the leading edge of a trigger pulse. Informational only.
	Rising
	// Falling is the trailing edge. Each falling edge advances the layer
	// cycle by one step.
	Falling
)

const (
	fallingMarker = "FALLING"
	risingMarker  = "RISING"
)

// String names the event for logs.
func (e Event) String() string {
	switch e {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	default:
		return "none"
	}
}

// Classify maps a firmware line to an event. Falling wins when a line
// carries both markers.
func Classify(line string) Event {
	switch {
	case strings.Contains(line, fallingMarker):
		return Falling
	case strings.Contains(line, risingMarker):
		return Rising
	default:
		return None
	}
}

// Options configures a Source.
type Options struct {
	Device      string
	Baud        int
	ReadTimeout time.Duration
	// OpenSettle is how long to wait after opening before trusting the
	// line. Microcontroller boards reset on port open and need time to
	// come back up.
	OpenSettle time.Duration
}

// Source owns an open serial port and yields classified edge events. It is
// not safe for concurrent use; the cycle worker is its only caller.
type Source struct {
	opts Options
	port serial.Port
	buf  []byte
	acc  []byte
}

// Open opens the trigger device and waits the configured settle period.
func Open(opts Options) (*Source, error) {
	if opts.Device == "" {
		return nil, errors.New("trigger: no device configured")
	}
	mode := &serial.Mode{BaudRate: opts.Baud}
	port, err := serial.Open(opts.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("trigger: open %s: %w", opts.Device, err)
	}
	if opts.ReadTimeout > 0 {
		if err := port.SetReadTimeout(opts.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("trigger: set read timeout on %s: %w", opts.Device, err)
		}
	}
	if opts.OpenSettle > 0 {
		time.Sleep(opts.OpenSettle)
	}
	return &Source{opts: opts, port: port, buf: make([]byte, 256)}, nil
}

// NewFromPort wraps an already open port. Used by tests and by callers that
// manage the port lifecycle themselves.
func NewFromPort(port serial.Port, opts Options) *Source {
	return &Source{opts: opts, port: port, buf: make([]byte, 256)}
}

// Device reports the device path the source was opened on.
func (s *Source) Device() string {
	return s.opts.Device
}

// Next reads until one complete line is available or the read timeout
// elapses. It returns the classified event together with the raw line it
// was decoded from, so unrecognized lines can be traced. ok=false with a
// nil error means a timeout and the caller can interleave other work; a
// non-nil error means the port failed and the source must be reopened.
func (s *Source) Next() (Event, string, bool, error) {
	for {
		if i := indexNewline(s.acc); i >= 0 {
			line := strings.TrimSpace(string(s.acc[:i]))
			s.acc = s.acc[i+1:]
			if line == "" {
				continue
			}
			return Classify(line), line, true, nil
		}
		n, err := s.port.Read(s.buf)
		if n > 0 {
			s.acc = append(s.acc, s.buf[:n]...)
			continue
		}
		if err != nil {
			return None, "", false, fmt.Errorf("trigger: read %s: %w", s.opts.Device, err)
		}
		// Zero bytes with no error is the library's read timeout.
		return None, "", false, nil
	}
}

// Reboot asks the firmware to reset itself. Best effort; the device drops
// off the bus briefly afterwards.
func (s *Source) Reboot() error {
	if _, err := s.port.Write([]byte("REBOOT\n")); err != nil {
		return fmt.Errorf("trigger: reboot %s: %w", s.opts.Device, err)
	}
	return nil
}

// Close releases the serial port.
func (s *Source) Close() error {
	return s.port.Close()
}

// ListPorts enumerates serial devices present on the host.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("trigger: list ports: %w", err)
	}
	return ports, nil
}

func indexNewline(b []byte) int {
	for i, c := range b {
		if c == '\n' {
			return i
		}
	}
	return -1
}
