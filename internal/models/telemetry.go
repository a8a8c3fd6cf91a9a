package models

import "time"

// Telemetry event kinds. The set is closed: events carry one of these tags
// with a fixed field layout rather than an open metadata bag.
const (
	EventClassificationSuccess = "classification_success"
	EventClassificationFailure = "classification_failure"
	EventGenericError          = "generic_error"
	EventFreeform              = "freeform"
)

// Telemetry severities
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// TelemetryEvent is one gameplay or error event. Classification events
// record a single tile-labelling attempt; the user id is a soft reference
// that tolerates dangling values until orphan healing materialises a user.
type TelemetryEvent struct {
	ID        int64     `json:"id,omitempty"`
	UserID    string    `json:"userId"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Context   string    `json:"context,omitempty"`
	Severity  string    `json:"severity"`
	GameLevel int       `json:"gameLevel,omitempty"`
	Resolved  bool      `json:"resolved"`
	Timestamp time.Time `json:"timestamp"`

	// Classification fields, set only for classification kinds
	ImageName      string `json:"imageName,omitempty"`
	AttemptedLabel string `json:"attemptedLabel,omitempty"`
	CorrectLabel   string `json:"correctLabel,omitempty"`
}

// IsClassification reports whether the event records a tile-labelling attempt
func (e *TelemetryEvent) IsClassification() bool {
	return e.Kind == EventClassificationSuccess || e.Kind == EventClassificationFailure
}
