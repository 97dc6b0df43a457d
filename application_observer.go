package stepper

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// observerRegistration holds information about a registered observer
type observerRegistration struct {
	observer     Observer
	eventTypes   map[string]bool // set of event types this observer is interested in
	registeredAt time.Time
}

// RegisterObserver adds an observer to receive notifications from the app.
// If eventTypes is empty, the observer receives all events.
func (app *App) RegisterObserver(observer Observer, eventTypes ...string) error {
	app.observerMutex.Lock()
	defer app.observerMutex.Unlock()

	eventTypeMap := make(map[string]bool)
	for _, eventType := range eventTypes {
		eventTypeMap[eventType] = true
	}

	app.observers[observer.ObserverID()] = &observerRegistration{
		observer:     observer,
		eventTypes:   eventTypeMap,
		registeredAt: time.Now(),
	}

	app.logger.Debug("Observer registered", "observerID", observer.ObserverID(), "eventTypes", eventTypes)
	return nil
}

// UnregisterObserver removes an observer from receiving notifications.
func (app *App) UnregisterObserver(observer Observer) error {
	app.observerMutex.Lock()
	defer app.observerMutex.Unlock()

	if _, exists := app.observers[observer.ObserverID()]; exists {
		delete(app.observers, observer.ObserverID())
		app.logger.Debug("Observer unregistered", "observerID", observer.ObserverID())
	}

	return nil
}

// NotifyObservers sends a CloudEvent to all interested observers.
// Each observer is called on its own goroutine; errors and panics are logged.
func (app *App) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	app.observerMutex.RLock()
	defer app.observerMutex.RUnlock()

	if event.Time().IsZero() {
		event.SetTime(time.Now())
	}

	if err := ValidateCloudEvent(event); err != nil {
		app.logger.Error("Invalid CloudEvent", "eventType", event.Type(), "error", err)
		return err
	}

	for _, registration := range app.observers {
		if len(registration.eventTypes) > 0 && !registration.eventTypes[event.Type()] {
			continue
		}

		app.observerWG.Add(1)
		go func() {
			defer app.observerWG.Done()
			defer func() {
				if r := recover(); r != nil {
					app.logger.Error("Observer panicked", "observerID", registration.observer.ObserverID(), "event", event.Type(), "panic", r)
				}
			}()

			if err := registration.observer.OnEvent(ctx, event); err != nil {
				app.logger.Error("Observer error", "observerID", registration.observer.ObserverID(), "event", event.Type(), "error", err)
			}
		}()
	}

	return nil
}

// EmitEvent builds a CloudEvent from source and data and notifies observers.
// Plugins use it to publish their own events through the app.
func (app *App) EmitEvent(ctx context.Context, eventType, source string, data any) error {
	return app.NotifyObservers(ctx, NewCloudEvent(eventType, source, data, nil))
}

// emitEvent emits a host event, logging rather than returning failures.
func (app *App) emitEvent(ctx context.Context, eventType string, data any) {
	if err := app.EmitEvent(ctx, eventType, EventSource, data); err != nil {
		app.logger.Error("Failed to notify observers", "event", eventType, "error", err)
	}
}

// GetObservers returns information about currently registered observers.
func (app *App) GetObservers() []ObserverInfo {
	app.observerMutex.RLock()
	defer app.observerMutex.RUnlock()

	info := make([]ObserverInfo, 0, len(app.observers))
	for _, registration := range app.observers {
		eventTypes := make([]string, 0, len(registration.eventTypes))
		for eventType := range registration.eventTypes {
			eventTypes = append(eventTypes, eventType)
		}

		info = append(info, ObserverInfo{
			ID:           registration.observer.ObserverID(),
			EventTypes:   eventTypes,
			RegisteredAt: registration.registeredAt,
		})
	}

	return info
}

// WaitObservers blocks until every observer call started so far has returned.
// Tests and shutdown use it to drain asynchronous deliveries.
func (app *App) WaitObservers() {
	app.observerWG.Wait()
}

var _ Subject = (*App)(nil)
