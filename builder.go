package stepper

import (
	"context"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Option configures an App during NewApp. Plugins and observers passed
// through options are registered after every option has been applied.
type Option func(b *appBuilder) error

// appBuilder collects options before the app is assembled.
type appBuilder struct {
	app       *App
	plugins   []Plugin
	observers []pendingObserver
}

type pendingObserver struct {
	observer   Observer
	eventTypes []string
}

// ObserverFunc is a functional observer that can be registered with the app
type ObserverFunc func(ctx context.Context, event cloudevents.Event) error

// WithLogger sets the logger for the app
func WithLogger(logger Logger) Option {
	return func(b *appBuilder) error {
		b.app.logger = logger
		return nil
	}
}

// WithConfig replaces the app configuration. Zero fields still receive
// their defaults during Init.
func WithConfig(cfg *Config) Option {
	return func(b *appBuilder) error {
		if cfg == nil {
			return ErrConfigNil
		}
		b.app.cfg = cfg
		return nil
	}
}

// WithConfigFeeders sets the feeders used to load configuration during Init.
func WithConfigFeeders(feeders ...Feeder) Option {
	return func(b *appBuilder) error {
		b.app.feeders = append(b.app.feeders, feeders...)
		return nil
	}
}

// WithPlugins registers plugins.
func WithPlugins(plugins ...Plugin) Option {
	return func(b *appBuilder) error {
		b.plugins = append(b.plugins, plugins...)
		return nil
	}
}

// WithObserver registers a functional observer for the given event types
// (all events when none are given).
func WithObserver(id string, fn ObserverFunc, eventTypes ...string) Option {
	return func(b *appBuilder) error {
		b.observers = append(b.observers, pendingObserver{
			observer:   NewFunctionalObserver(id, fn),
			eventTypes: eventTypes,
		})
		return nil
	}
}
