// Observers receive the CloudEvents an App emits: plugin and app lifecycle,
// failed ticks, and whatever plugins publish (progress completion, config
// reloads).

package stepper

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Observer receives events from a Subject. OnEvent runs on its own
// goroutine per event; an error is logged and otherwise dropped.
type Observer interface {
	OnEvent(ctx context.Context, event cloudevents.Event) error
	// ObserverID identifies the observer for GetObservers and
	// UnregisterObserver. IDs are unique per subject.
	ObserverID() string
}

// Subject fans events out to observers. *App is the only Subject in this
// module.
type Subject interface {
	// RegisterObserver subscribes observer to eventTypes, or to every event
	// when none are given. Registering the same ID again replaces the
	// subscription.
	RegisterObserver(observer Observer, eventTypes ...string) error
	UnregisterObserver(observer Observer) error
	// NotifyObservers returns once delivery is scheduled.
	NotifyObservers(ctx context.Context, event cloudevents.Event) error
	GetObservers() []ObserverInfo
}

// ObserverInfo describes one subscription.
type ObserverInfo struct {
	ID           string    `json:"id"`
	EventTypes   []string  `json:"eventTypes"` // empty: all events
	RegisteredAt time.Time `json:"registeredAt"`
}

// Host event types.
const (
	EventTypePluginRegistered = "com.stepper.plugin.registered"
	EventTypePluginBuilt      = "com.stepper.plugin.built"

	EventTypeApplicationStarted = "com.stepper.app.started"
	EventTypeApplicationStopped = "com.stepper.app.stopped"
	EventTypeApplicationFailed  = "com.stepper.app.failed"

	EventTypeTickFailed = "com.stepper.tick.failed"
)

// EventSource is the source attribute of host events.
const EventSource = "stepper"

// FunctionalObserver adapts a function to Observer.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver returns an Observer calling handler for each event.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{
		id:      id,
		handler: handler,
	}
}

func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

func (f *FunctionalObserver) ObserverID() string {
	return f.id
}
