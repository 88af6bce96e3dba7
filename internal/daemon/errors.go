package daemon

import "errors"

// ErrSessionActive indicates a session is already running and must be
// stopped before a new one starts.
var ErrSessionActive = errors.New("a session is already running")

// ErrNoSession indicates no session is currently running.
var ErrNoSession = errors.New("no session is running")

// ErrUnknownPreset indicates a requested preset name does not exist.
var ErrUnknownPreset = errors.New("unknown preset")

// ErrUnknownStencil indicates a requested stencil name does not exist.
var ErrUnknownStencil = errors.New("unknown stencil")
