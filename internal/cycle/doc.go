// Package cycle implements the layer cycle controller, the worker that owns
// the trigger event stream and the control channel for one session. The
// worker is the only goroutine that touches the layer index, the serial
// source, and the load/confirm sequence; the control surface reaches it
// through a cancellation context and a request handoff channel.
package cycle
