package cycle

// State tracks where the controller is in its lifecycle. Loading and
// Confirmed always carry a valid catalog index.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateConfirmed
	StateRunning
	StateStopping
	StateStopped
)

// String names the state for logs and status output.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateConfirmed:
		return "confirmed"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
