package stepper

import (
	"context"
	"fmt"
)

// DefaultSet is the set systems land in when they do not name one.
const DefaultSet = "default"

// Context is handed to every system, condition and trigger observer.
// It embeds the tick's context.Context so systems can honour cancellation.
type Context struct {
	context.Context

	// App is the running application.
	App *App

	// Tick is the 1-based tick number, 0 outside the tick loop.
	Tick uint64

	// Schedule is the schedule currently running.
	Schedule Label
}

// World is shorthand for ctx.App.World().
func (c *Context) World() *World {
	return c.App.World()
}

// Logger is shorthand for ctx.App.Logger().
func (c *Context) Logger() Logger {
	return c.App.Logger()
}

func (c *Context) with(ctx context.Context) *Context {
	cp := *c
	cp.Context = ctx
	return &cp
}

// SystemFunc is the body of a system.
type SystemFunc func(ctx *Context) error

// Condition decides whether a system runs this tick. Conditions are
// evaluated once, at the start of the system's set, and must not mutate state.
type Condition func(ctx *Context) bool

// System is a named unit of work registered against a schedule.
type System struct {
	Name       string
	Func       SystemFunc
	Set        string
	Conditions []Condition
}

// NewSystem creates a system in DefaultSet.
func NewSystem(name string, fn SystemFunc) System {
	return System{Name: name, Func: fn, Set: DefaultSet}
}

// InSet returns a copy of the system placed in set.
func (s System) InSet(set string) System {
	s.Set = set
	return s
}

// RunIf returns a copy of the system with additional run conditions.
// All conditions must hold for the system to run.
func (s System) RunIf(conds ...Condition) System {
	s.Conditions = append(append([]Condition(nil), s.Conditions...), conds...)
	return s
}

func (s System) shouldRun(ctx *Context) bool {
	for _, cond := range s.Conditions {
		if cond != nil && !cond(ctx) {
			return false
		}
	}
	return true
}

// SystemError reports which system failed during a tick.
type SystemError struct {
	Schedule Label
	Set      string
	System   string
	Tick     uint64
	Err      error
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("tick %d: schedule %s: set %s: system %s: %v", e.Tick, e.Schedule, e.Set, e.System, e.Err)
}

func (e *SystemError) Unwrap() error {
	return e.Err
}

// Not negates a condition.
func Not(cond Condition) Condition {
	return func(ctx *Context) bool { return !cond(ctx) }
}

// ResourceExists is a condition that holds while a resource of type T is present.
func ResourceExists[T any]() Condition {
	return func(ctx *Context) bool {
		_, ok := GetResource[T](ctx.App)
		return ok
	}
}
