package stepper

import (
	"errors"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// CloudEvent is the event type passed to observers.
type CloudEvent = cloudevents.Event

// NewCloudEvent builds a v1.0 event with a time-ordered id and the current
// time. data is encoded as JSON; metadata entries become extensions.
func NewCloudEvent(eventType, source string, data any, metadata map[string]any) cloudevents.Event {
	event := cloudevents.NewEvent()

	event.SetID(generateEventID())
	event.SetSource(source)
	event.SetType(eventType)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)

	if data != nil {
		_ = event.SetData(cloudevents.ApplicationJSON, data)
	}

	for key, value := range metadata {
		event.SetExtension(key, value)
	}

	return event
}

// generateEventID returns a UUIDv7, falling back to v4 if the clock read
// fails.
func generateEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

// ValidateCloudEvent checks the required attributes of event.
func ValidateCloudEvent(event cloudevents.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event %q: %w", event.Type(), err)
	}
	return nil
}

// HandleEventEmissionError logs a failed emit at debug level. A missing
// subject is not worth logging. It reports false only when there is no
// logger to hand the error to.
func HandleEventEmissionError(err error, logger Logger, pluginName, eventType string) bool {
	if errors.Is(err, ErrNoSubjectForEventEmission) {
		return true
	}

	if logger != nil {
		logger.Debug("Failed to emit event", "plugin", pluginName, "eventType", eventType, "error", err)
		return true
	}

	return false
}
