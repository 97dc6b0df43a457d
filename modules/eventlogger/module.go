// Package eventlogger writes every CloudEvent the app emits to its logger.
//
// Events are mapped to a level by type: failures log at ERROR, plugin
// bookkeeping at DEBUG, everything else at INFO.
package eventlogger

import (
	"context"
	"errors"
	"slices"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/GoCodeAlone/stepper"
	"github.com/GoCodeAlone/stepper/modules/progress"
)

// ModuleName is the plugin, observer and config section name.
const ModuleName = "eventlogger"

var ErrInvalidLogLevel = errors.New("invalid log level")

var levels = map[string]int{
	"DEBUG": 0,
	"INFO":  1,
	"WARN":  2,
	"ERROR": 3,
}

// Plugin logs app events.
type Plugin struct {
	config *Config
	logger stepper.Logger
}

// NewPlugin creates the event logger.
func NewPlugin() *Plugin {
	return &Plugin{config: &Config{}}
}

func (p *Plugin) Name() string { return ModuleName }

func (p *Plugin) RegisterConfig(app *stepper.App) error {
	app.RegisterConfigSection(ModuleName, stepper.NewStdConfigProvider(p.config))
	return nil
}

// Build subscribes to the app's events.
func (p *Plugin) Build(app *stepper.App) error {
	if app == nil {
		return stepper.ErrApplicationNil
	}
	p.logger = app.Logger()
	return app.RegisterObserver(p, p.config.EventTypeFilters...)
}

// OnEvent logs event at the level its type maps to.
func (p *Plugin) OnEvent(_ context.Context, event cloudevents.Event) error {
	if !p.shouldLogEvent(event) {
		return nil
	}

	args := []any{"type", event.Type(), "source", event.Source(), "id", event.ID()}
	if p.config.IncludeData && len(event.Data()) > 0 {
		args = append(args, "data", string(event.Data()))
	}

	switch eventLevel(event) {
	case "ERROR":
		p.logger.Error("Event", args...)
	case "DEBUG":
		p.logger.Debug("Event", args...)
	default:
		p.logger.Info("Event", args...)
	}
	return nil
}

func (p *Plugin) ObserverID() string {
	return ModuleName
}

func (p *Plugin) shouldLogEvent(event cloudevents.Event) bool {
	if len(p.config.EventTypeFilters) > 0 && !slices.Contains(p.config.EventTypeFilters, event.Type()) {
		return false
	}
	return levels[eventLevel(event)] >= levels[p.config.LogLevel]
}

func eventLevel(event cloudevents.Event) string {
	switch event.Type() {
	case stepper.EventTypeApplicationFailed, stepper.EventTypeTickFailed:
		return "ERROR"
	case stepper.EventTypePluginRegistered, stepper.EventTypePluginBuilt, progress.EventTypeRegistered:
		return "DEBUG"
	default:
		return "INFO"
	}
}
