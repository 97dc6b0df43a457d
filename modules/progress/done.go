package progress

import (
	"github.com/GoCodeAlone/stepper"
)

// Done is raised once per episode when a Tracker[T] completes.
type Done[T any] struct {
	work uint64

	// Tick is the tick the tracker completed at.
	Tick uint64
	// Episode is the episode that completed, starting at 1.
	Episode uint64
	// Entity is the tracked entity, or stepper.NoEntity for the resource
	// tracker.
	Entity stepper.Entity
}

// Work returns the total units of work that were completed.
func (d Done[T]) Work() uint64 {
	return d.work
}

// DoneSchedule returns the schedule run once, right after Done[T] is
// raised by the resource tracker.
func DoneSchedule[T any]() stepper.Label {
	return stepper.Label("Done[" + stepper.TypeName[T]() + "]")
}

// OnDone adds follow-up systems to DoneSchedule[T]().
func OnDone[T any](app *stepper.App, systems ...stepper.System) error {
	return app.AddSystems(DoneSchedule[T](), systems...)
}

// ObserveDone registers fn for every Done[T], from the resource tracker and
// from entity trackers alike.
func ObserveDone[T any](app *stepper.App, fn func(ctx *stepper.Context, done Done[T]) error) {
	stepper.Observe(app, func(ctx *stepper.Context, done Done[T], _ stepper.Entity) error {
		return fn(ctx, done)
	})
}
