package progress

import (
	"github.com/GoCodeAlone/stepper"
)

// Event type constants for progress events.
// Following CloudEvents specification reverse domain notation.
const (
	EventTypeRegistered = "com.stepper.progress.registered"
	EventTypeCompleted  = "com.stepper.progress.completed"
	EventTypeRestarted  = "com.stepper.progress.restarted"
)

// EventSource is the CloudEvents source of progress events.
const EventSource = "stepper.progress"

// RegisteredEvent is the payload of EventTypeRegistered.
type RegisteredEvent struct {
	Tag           string        `json:"tag"`
	Plugin        string        `json:"plugin"`
	PerEntity     bool          `json:"perEntity"`
	CheckSchedule stepper.Label `json:"checkSchedule"`
	ResetSchedule stepper.Label `json:"resetSchedule"`
}

// CompletedEvent is the payload of EventTypeCompleted.
type CompletedEvent struct {
	Tag     string         `json:"tag"`
	Work    uint64         `json:"work"`
	Tick    uint64         `json:"tick"`
	Episode uint64         `json:"episode"`
	Entity  stepper.Entity `json:"entity,omitempty"`
}

// RestartedEvent is the payload of EventTypeRestarted.
type RestartedEvent struct {
	Tag     string         `json:"tag"`
	Episode uint64         `json:"episode"`
	Entity  stepper.Entity `json:"entity,omitempty"`
}
