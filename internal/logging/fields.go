package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSessionID is the standardized structured logging key for marking session identifiers.
	FieldSessionID = "session_id"
	// FieldLayerIndex is the standardized structured logging key for the current layer position.
	FieldLayerIndex = "layer_index"
	// FieldLayerTotal is the standardized structured logging key for the catalog size.
	FieldLayerTotal = "layer_total"
	// FieldDevice is the standardized structured logging key for serial device paths.
	FieldDevice = "device"
	// FieldEventType tags log records with a machine-matchable event name.
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator-facing next step for a warning or error.
	FieldErrorHint = "error_hint"
	// FieldImpact carries the user-facing consequence of a warning.
	FieldImpact = "impact"
)
