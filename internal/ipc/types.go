package ipc

import "time"

// SessionLine is one operator text line in a session start request.
type SessionLine struct {
	Text   string
	Preset string
	Color  string
}

// SessionStatus mirrors the daemon's session view across the wire.
type SessionStatus struct {
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

type SessionStartRequest struct {
	Lines  [3]SessionLine
	Copies int
}

type SessionStartResponse struct {
	Session SessionStatus
}

type SessionStopRequest struct{}

type SessionStopResponse struct {
	Stopped bool
	Message string
}

type NextLayerRequest struct{}

type NextLayerResponse struct {
	Session SessionStatus
}

type TriggerRebootRequest struct{}

type TriggerRebootResponse struct {
	Done bool
}

type StatusRequest struct{}

type StatusResponse struct {
	Running       bool
	PID           int
	LockPath      string
	HistoryDBPath string
	TriggerDevice string
	Session       *SessionStatus
}

type PortsRequest struct{}

type PortsResponse struct {
	Ports []string
}

// Preset is a named set of layout parameters.
type Preset struct {
	Name   string
	X      float64
	Y      float64
	Font   float64
	Offset float64
	Color  string
}

type PresetListRequest struct{}

type PresetListResponse struct {
	Presets []Preset
}

type PresetSetRequest struct {
	Preset Preset
}

type PresetSetResponse struct{}

type PresetRemoveRequest struct {
	Name string
}

type PresetRemoveResponse struct{}

// Stencil maps a stencil name to the preset it uses.
type Stencil struct {
	Name   string
	Preset string
}

type StencilListRequest struct{}

type StencilListResponse struct {
	Stencils []Stencil
}

type StencilSetRequest struct {
	Name   string
	Preset string
}

type StencilSetResponse struct{}

type StencilRemoveRequest struct {
	Name string
}

type StencilRemoveResponse struct{}

// HistorySession is a persisted session record.
type HistorySession struct {
	ID              string
	StartedAt       time.Time
	EndedAt         time.Time
	Active          bool
	TriggerDevice   string
	Copies          int
	Lines           [3]string
	ArtifactCount   int
	LayersCompleted int
	Outcome         string
	Error           string
}

type HistoryRequest struct {
	Limit int
}

type HistoryResponse struct {
	Sessions []HistorySession
}

type LogTailRequest struct {
	Offset     int64
	Limit      int
	Follow     bool
	WaitMillis int64
}

type LogTailResponse struct {
	Lines  []string
	Offset int64
}

type TestNotificationRequest struct{}

type TestNotificationResponse struct {
	Sent    bool
	Message string
}

type ShutdownRequest struct{}

type ShutdownResponse struct {
	Stopping bool
}
