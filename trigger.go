package stepper

import (
	"errors"
	"reflect"
	"slices"
)

// TriggerFunc observes events of type E raised with Trigger.
type TriggerFunc[E any] func(ctx *Context, event E, target Entity) error

// Observe registers fn for every Trigger of type E.
// Observers run synchronously, in registration order, on the goroutine that
// raised the trigger.
func Observe[E any](app *App, fn TriggerFunc[E]) {
	app.triggerMu.Lock()
	defer app.triggerMu.Unlock()
	key := reflect.TypeFor[E]()
	app.triggers[key] = append(app.triggers[key], fn)
}

// Trigger delivers event to every observer of E, once per target.
// With no targets the observers see NoEntity. Observer errors are joined.
func Trigger[E any](ctx *Context, event E, targets ...Entity) error {
	app := ctx.App
	app.triggerMu.RLock()
	observers := slices.Clone(app.triggers[reflect.TypeFor[E]()])
	app.triggerMu.RUnlock()

	if len(observers) == 0 {
		return nil
	}
	if len(targets) == 0 {
		targets = []Entity{NoEntity}
	}

	var errs []error
	for _, target := range targets {
		for _, obs := range observers {
			if err := obs.(TriggerFunc[E])(ctx, event, target); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
