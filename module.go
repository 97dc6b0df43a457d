// Package stepper provides a small tick-driven plugin host for Go.
//
// An App owns a set of plugins, a handful of ordered schedules, typed
// resources, a world of entities with typed components, and an observer
// subject speaking CloudEvents. Every tick runs the built-in schedules in
// order (First, PreUpdate, Update, PostUpdate, Last); each schedule runs its
// system sets in dependency order, with a barrier between sets.
//
// Plugins implement the Plugin interface and may optionally implement
// Configurable, DependencyAware, Startable and Stoppable.
//
// Basic usage:
//
//	app, err := stepper.NewApp(stepper.WithLogger(logger))
//	if err != nil {
//		log.Fatal(err)
//	}
//	app.AddPlugins(progress.NewPlugin[LevelLoad]())
//	if err := app.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
package stepper

import "context"

// Plugin represents a registrable unit of functionality.
// All plugins must implement this interface to be managed by the App.
type Plugin interface {
	// Name returns the unique identifier for this plugin.
	// It is used for dependency resolution and must be unique within an App.
	Name() string

	// Build wires the plugin into the app: resources, systems, observers.
	// Build is called once, in dependency order, from App.Init after config
	// has been loaded.
	Build(app *App) error
}

// Configurable is an interface for plugins that own a configuration section.
// RegisterConfig is called before config loading so that feeders can
// populate the section.
//
// Example:
//
//	func (p *MyPlugin) RegisterConfig(app *stepper.App) error {
//	    app.RegisterConfigSection(p.Name(), stepper.NewStdConfigProvider(&MyConfig{}))
//	    return nil
//	}
type Configurable interface {
	RegisterConfig(app *App) error
}

// DependencyAware is an interface for plugins that depend on other plugins.
// Dependencies are built before dependents. Circular dependencies fail Init.
type DependencyAware interface {
	// Dependencies returns names of other plugins this plugin depends on.
	Dependencies() []string
}

// Startable is an interface for plugins with runtime work outside the tick
// loop, such as network listeners.
type Startable interface {
	Start(ctx context.Context) error
}

// Stoppable is an interface for plugins that need cleanup on shutdown.
// Stop is called in reverse dependency order and should honour ctx.
type Stoppable interface {
	Stop(ctx context.Context) error
}
