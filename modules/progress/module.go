package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/GoCodeAlone/stepper"
)

// PluginPrefix prefixes the plugin names of progress plugins.
const PluginPrefix = "progress"

// tagInfo records how the resource tracker for T was registered.
type tagInfo[T any] struct {
	name   string
	plugin string
}

// entityTagInfo records how entity trackers for T were registered.
type entityTagInfo[T any] struct {
	name   string
	plugin string
}

// Plugin tracks progress for tag T with a Tracker[T] resource.
//
// Reporters added with TrackProgress[T] run in any schedule up to
// CheckSchedule; the check raises Done[T], runs DoneSchedule[T]() and emits
// EventTypeCompleted once per episode. The reset clears the sums in
// ResetSchedule, after the check.
type Plugin[T any] struct {
	// CheckSchedule is where completion is checked. Defaults to PostUpdate.
	CheckSchedule stepper.Label
	// ResetSchedule is where the sums are cleared. It should be the same as,
	// or later than, CheckSchedule. Defaults to Last.
	ResetSchedule stepper.Label

	tag string
}

// NewPlugin creates a Plugin for T, named after T's Go type.
func NewPlugin[T any]() *Plugin[T] {
	return &Plugin[T]{
		CheckSchedule: stepper.PostUpdate,
		ResetSchedule: stepper.Last,
		tag:           stepper.TypeName[T](),
	}
}

// WithTagName overrides the name used in logs, events, metrics and the
// registry.
func (p *Plugin[T]) WithTagName(name string) *Plugin[T] {
	p.tag = name
	return p
}

// WithSchedules overrides the check and reset schedules.
func (p *Plugin[T]) WithSchedules(check, reset stepper.Label) *Plugin[T] {
	p.CheckSchedule = check
	p.ResetSchedule = reset
	return p
}

// Name returns the plugin name.
func (p *Plugin[T]) Name() string {
	return PluginPrefix + ":" + p.tag
}

// Tag returns the tag name.
func (p *Plugin[T]) Tag() string {
	return p.tag
}

// Build inserts the tracker and registers the check and reset systems.
func (p *Plugin[T]) Build(app *stepper.App) error {
	if app == nil {
		return stepper.ErrApplicationNil
	}

	tracker, inserted := stepper.InitResource(app, NewTracker[T])
	if !inserted {
		return fmt.Errorf("%w: %s", ErrTagAlreadyRegistered, stepper.TypeName[T]())
	}

	restart := func(ctx context.Context) error { return Restart[T](ctx, app) }
	if err := RegistryOf(app).register(p.tag, tracker.snapshot(p.tag, 0), restart); err != nil {
		stepper.RemoveResource[Tracker[T]](app)
		return err
	}
	stepper.InsertResource(app, &tagInfo[T]{name: p.tag, plugin: p.Name()})

	if err := addCheckAndReset(app, p.CheckSchedule, p.ResetSchedule, p.tag, p.check, p.reset); err != nil {
		return err
	}

	app.Logger().Info("Progress tracking registered", "tag", p.tag, "check", p.CheckSchedule, "reset", p.ResetSchedule)
	emit(context.Background(), app, p.Name(), EventTypeRegistered, RegisteredEvent{
		Tag:           p.tag,
		Plugin:        p.Name(),
		CheckSchedule: p.CheckSchedule,
		ResetSchedule: p.ResetSchedule,
	})
	return nil
}

func (p *Plugin[T]) check(ctx *stepper.Context) error {
	tracker, ok := stepper.GetResource[Tracker[T]](ctx.App)
	if !ok {
		return nil
	}

	work, completed := tracker.complete(ctx.Tick)
	RegistryOf(ctx.App).record(tracker.snapshot(p.tag, ctx.Tick), nil)
	if !completed {
		return nil
	}

	done := Done[T]{work: work, Tick: ctx.Tick, Episode: tracker.Episode(), Entity: stepper.NoEntity}
	ctx.Logger().Info("Progress complete", "tag", p.tag, "work", work, "tick", ctx.Tick, "episode", done.Episode)

	// the episode is complete either way; every follow-up runs once
	var errs []error
	if err := stepper.Trigger(ctx, done); err != nil {
		errs = append(errs, fmt.Errorf("done observers for %s: %w", p.tag, err))
	}
	emit(ctx.Context, ctx.App, p.Name(), EventTypeCompleted, CompletedEvent{
		Tag:     p.tag,
		Work:    work,
		Tick:    ctx.Tick,
		Episode: done.Episode,
	})
	if err := ctx.App.RunSchedule(ctx.Context, DoneSchedule[T]()); err != nil {
		errs = append(errs, fmt.Errorf("done schedule for %s: %w", p.tag, err))
	}
	return errors.Join(errs...)
}

func (p *Plugin[T]) reset(ctx *stepper.Context) error {
	if tracker, ok := stepper.GetResource[Tracker[T]](ctx.App); ok {
		tracker.reset()
	}
	return nil
}

// EntityPlugin tracks progress for tag T with Tracker[T] components. Give
// an entity a tracker with AttachTracker[T]; each entity completes on its
// own and Done[T] is triggered targeted at it.
type EntityPlugin[T any] struct {
	// CheckSchedule is where completion is checked. Defaults to PostUpdate.
	CheckSchedule stepper.Label
	// ResetSchedule is where the sums are cleared. Defaults to Last.
	ResetSchedule stepper.Label

	tag string
}

// NewEntityPlugin creates an EntityPlugin for T.
func NewEntityPlugin[T any]() *EntityPlugin[T] {
	return &EntityPlugin[T]{
		CheckSchedule: stepper.PostUpdate,
		ResetSchedule: stepper.Last,
		tag:           stepper.TypeName[T](),
	}
}

// WithTagName overrides the name used in logs, events and the registry.
func (p *EntityPlugin[T]) WithTagName(name string) *EntityPlugin[T] {
	p.tag = name
	return p
}

// WithSchedules overrides the check and reset schedules.
func (p *EntityPlugin[T]) WithSchedules(check, reset stepper.Label) *EntityPlugin[T] {
	p.CheckSchedule = check
	p.ResetSchedule = reset
	return p
}

// Name returns the plugin name.
func (p *EntityPlugin[T]) Name() string {
	return PluginPrefix + "-entity:" + p.tag
}

// Build registers the check and reset systems.
func (p *EntityPlugin[T]) Build(app *stepper.App) error {
	if app == nil {
		return stepper.ErrApplicationNil
	}

	_, inserted := stepper.InitResource(app, func() *entityTagInfo[T] {
		return &entityTagInfo[T]{name: p.tag, plugin: p.Name()}
	})
	if !inserted {
		return fmt.Errorf("%w: %s (entity)", ErrTagAlreadyRegistered, stepper.TypeName[T]())
	}

	if err := addCheckAndReset(app, p.CheckSchedule, p.ResetSchedule, p.tag, p.check, p.reset); err != nil {
		return err
	}

	app.Logger().Info("Entity progress tracking registered", "tag", p.tag, "check", p.CheckSchedule, "reset", p.ResetSchedule)
	emit(context.Background(), app, p.Name(), EventTypeRegistered, RegisteredEvent{
		Tag:           p.tag,
		Plugin:        p.Name(),
		PerEntity:     true,
		CheckSchedule: p.CheckSchedule,
		ResetSchedule: p.ResetSchedule,
	})
	return nil
}

func (p *EntityPlugin[T]) check(ctx *stepper.Context) error {
	registry := RegistryOf(ctx.App)
	seen := make(map[string]bool)
	var errs []error

	stepper.Each(ctx.World(), func(e stepper.Entity, tracker *Tracker[T]) {
		name := entityTag(p.tag, e)
		seen[name] = true

		work, completed := tracker.complete(ctx.Tick)
		registry.record(tracker.snapshot(name, ctx.Tick), func(rctx context.Context) error {
			return RestartEntity[T](rctx, ctx.App, e)
		})
		if !completed {
			return
		}

		done := Done[T]{work: work, Tick: ctx.Tick, Episode: tracker.Episode(), Entity: e}
		ctx.Logger().Info("Progress complete", "tag", p.tag, "entity", e, "work", work, "tick", ctx.Tick, "episode", done.Episode)

		if err := stepper.Trigger(ctx, done, e); err != nil {
			errs = append(errs, fmt.Errorf("done observers for %s: %w", name, err))
		}
		emit(ctx.Context, ctx.App, p.Name(), EventTypeCompleted, CompletedEvent{
			Tag:     p.tag,
			Work:    work,
			Tick:    ctx.Tick,
			Episode: done.Episode,
			Entity:  e,
		})
	})

	registry.prune(p.tag+"@", seen)
	return errors.Join(errs...)
}

func (p *EntityPlugin[T]) reset(ctx *stepper.Context) error {
	stepper.Each(ctx.World(), func(_ stepper.Entity, tracker *Tracker[T]) {
		tracker.reset()
	})
	return nil
}

func addCheckAndReset(app *stepper.App, check, reset stepper.Label, tag string, checkFn, resetFn stepper.SystemFunc) error {
	app.OrderSets(check, SetReport, SetCheck)
	app.OrderSets(reset, SetCheck, SetReset)

	if err := app.AddSystems(check, stepper.NewSystem("progress.check."+tag, checkFn).InSet(SetCheck)); err != nil {
		return err
	}
	return app.AddSystems(reset, stepper.NewSystem("progress.reset."+tag, resetFn).InSet(SetReset))
}
