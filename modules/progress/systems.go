package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/GoCodeAlone/stepper"
)

// System sets used by the progress plugins. Within a schedule reporters run
// before the check, and the check runs before the reset.
const (
	SetReport = "progress.report"
	SetCheck  = "progress.check"
	SetReset  = "progress.reset"
)

// ReporterFunc reports this tick's progress for a tag.
type ReporterFunc func(ctx *stepper.Context) (Progress, error)

// EntityReporterFunc reports this tick's progress for one tracked entity.
type EntityReporterFunc func(ctx *stepper.Context, e stepper.Entity) (Progress, error)

// TrackProgress turns fn into a reporter system for tag T. The system adds
// fn's result to the Tracker[T] resource and fails if Plugin[T] was not added.
func TrackProgress[T any](name string, fn ReporterFunc) stepper.System {
	sys := stepper.System{Name: name, Set: SetReport}
	if fn == nil {
		return sys
	}
	sys.Func = func(ctx *stepper.Context) error {
		tracker, ok := stepper.GetResource[Tracker[T]](ctx.App)
		if !ok {
			return fmt.Errorf("%w: %s", ErrTagNotRegistered, stepper.TypeName[T]())
		}
		p, err := fn(ctx)
		if err != nil {
			return err
		}
		tracker.Add(p)
		return nil
	}
	return sys
}

// TrackEntityProgress turns fn into a reporter system called once per
// entity carrying a Tracker[T] component. Entities whose episode has
// completed are skipped.
func TrackEntityProgress[T any](name string, fn EntityReporterFunc) stepper.System {
	sys := stepper.System{Name: name, Set: SetReport}
	if fn == nil {
		return sys
	}
	sys.Func = func(ctx *stepper.Context) error {
		var errs []error
		stepper.Each(ctx.World(), func(e stepper.Entity, tracker *Tracker[T]) {
			if !tracker.Tracking() {
				return
			}
			p, err := fn(ctx, e)
			if err != nil {
				errs = append(errs, fmt.Errorf("entity %d: %w", e, err))
				return
			}
			tracker.Add(p)
		})
		return errors.Join(errs...)
	}
	return sys
}

// CurrentlyTracking holds while the Tracker[T] resource exists and its
// episode has not completed.
func CurrentlyTracking[T any]() stepper.Condition {
	return func(ctx *stepper.Context) bool {
		tracker, ok := stepper.GetResource[Tracker[T]](ctx.App)
		return ok && tracker.Tracking()
	}
}

// AnyEntityTracking holds while at least one entity tracker for T is in
// progress.
func AnyEntityTracking[T any]() stepper.Condition {
	return func(ctx *stepper.Context) bool {
		tracking := false
		stepper.Each(ctx.World(), func(_ stepper.Entity, tracker *Tracker[T]) {
			tracking = tracking || tracker.Tracking()
		})
		return tracking
	}
}

// AttachTracker gives e a fresh Tracker[T] component.
func AttachTracker[T any](w *stepper.World, e stepper.Entity) error {
	return stepper.Insert(w, e, NewTracker[T]())
}

// Restart starts a new episode for the Tracker[T] resource: sums are cleared,
// the phase returns to tracking and Done[T] can fire again.
func Restart[T any](ctx context.Context, app *stepper.App) error {
	tracker, ok := stepper.GetResource[Tracker[T]](app)
	info, registered := stepper.GetResource[tagInfo[T]](app)
	if !ok || !registered {
		return fmt.Errorf("%w: %s", ErrTagNotRegistered, stepper.TypeName[T]())
	}

	episode := tracker.restart()
	RegistryOf(app).overwrite(tracker.snapshot(info.name, app.Tick()))
	app.Logger().Info("Progress restarted", "tag", info.name, "episode", episode)
	emit(ctx, app, info.plugin, EventTypeRestarted, RestartedEvent{Tag: info.name, Episode: episode})
	return nil
}

// RestartEntity starts a new episode for e's Tracker[T] component.
func RestartEntity[T any](ctx context.Context, app *stepper.App, e stepper.Entity) error {
	tracker, ok := stepper.Get[Tracker[T]](app.World(), e)
	if !ok {
		return fmt.Errorf("%w: %d", ErrEntityNotTracked, e)
	}

	name := stepper.TypeName[T]()
	plugin := ""
	if info, registered := stepper.GetResource[entityTagInfo[T]](app); registered {
		name, plugin = info.name, info.plugin
	}

	episode := tracker.restart()
	RegistryOf(app).overwrite(tracker.snapshot(entityTag(name, e), app.Tick()))
	app.Logger().Info("Progress restarted", "tag", name, "entity", e, "episode", episode)
	emit(ctx, app, plugin, EventTypeRestarted, RestartedEvent{Tag: name, Episode: episode, Entity: e})
	return nil
}

func entityTag(tag string, e stepper.Entity) string {
	return fmt.Sprintf("%s@%d", tag, e)
}

func emit(ctx context.Context, app *stepper.App, plugin, eventType string, data any) {
	if err := app.EmitEvent(ctx, eventType, EventSource, data); err != nil {
		stepper.HandleEventEmissionError(err, app.Logger(), plugin, eventType)
	}
}
