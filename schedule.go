package stepper

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Label names a schedule.
type Label string

// Built-in schedules, run in this order every tick.
const (
	First      Label = "First"
	PreUpdate  Label = "PreUpdate"
	Update     Label = "Update"
	PostUpdate Label = "PostUpdate"
	Last       Label = "Last"
)

// TickOrder returns the built-in schedules in execution order.
func TickOrder() []Label {
	return []Label{First, PreUpdate, Update, PostUpdate, Last}
}

// Schedule is an ordered collection of system sets.
// Sets run one after another; systems inside a set may run concurrently.
type Schedule struct {
	label   Label
	mu      sync.RWMutex
	sets    []string            // registration order
	systems map[string][]System // by set
	after   map[string][]string // set -> sets that must run first
	order   []string            // cached topological order, nil when stale
}

func newSchedule(label Label) *Schedule {
	return &Schedule{
		label:   label,
		systems: make(map[string][]System),
		after:   make(map[string][]string),
	}
}

// Label returns the schedule's label.
func (s *Schedule) Label() Label {
	return s.label
}

func (s *Schedule) addSet(set string) {
	if _, ok := s.systems[set]; ok {
		return
	}
	s.sets = append(s.sets, set)
	s.systems[set] = nil
	s.order = nil
}

func (s *Schedule) add(sys System) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sys.Set == "" {
		sys.Set = DefaultSet
	}
	s.addSet(sys.Set)
	s.systems[sys.Set] = append(s.systems[sys.Set], sys)
}

// orderSets records that first runs before then.
func (s *Schedule) orderSets(first, then string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addSet(first)
	s.addSet(then)
	if !slices.Contains(s.after[then], first) {
		s.after[then] = append(s.after[then], first)
	}
	s.order = nil
}

// Sets returns the set names in execution order.
func (s *Schedule) Sets() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveOrder()
}

// resolveOrder returns sets in execution order; callers hold s.mu.
func (s *Schedule) resolveOrder() ([]string, error) {
	if s.order != nil {
		return s.order, nil
	}

	var result []string
	visited := make(map[string]bool)
	temp := make(map[string]bool)

	var visit func(string) error
	visit = func(node string) error {
		if temp[node] {
			return fmt.Errorf("%w: schedule %s at set %s", ErrCircularSetOrder, s.label, node)
		}
		if visited[node] {
			return nil
		}
		temp[node] = true

		for _, dep := range s.after[node] {
			if err := visit(dep); err != nil {
				return err
			}
		}

		visited[node] = true
		temp[node] = false
		result = append(result, node)
		return nil
	}

	for _, node := range s.sets {
		if !visited[node] {
			if err := visit(node); err != nil {
				return nil, err
			}
		}
	}

	s.order = result
	return result, nil
}

type setPlan struct {
	name    string
	systems []System
}

func (s *Schedule) plan() ([]setPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.resolveOrder()
	if err != nil {
		return nil, err
	}
	plans := make([]setPlan, 0, len(order))
	for _, set := range order {
		if len(s.systems[set]) == 0 {
			continue
		}
		plans = append(plans, setPlan{name: set, systems: slices.Clone(s.systems[set])})
	}
	return plans, nil
}

// run executes every set in order. A set acts as a barrier: the next set
// starts only after all systems of the current one returned.
func (s *Schedule) run(ctx *Context, parallel bool) error {
	plans, err := s.plan()
	if err != nil {
		return err
	}

	for _, p := range plans {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("schedule %s interrupted: %w", s.label, err)
		}

		runnable := make([]System, 0, len(p.systems))
		for _, sys := range p.systems {
			if sys.shouldRun(ctx) {
				runnable = append(runnable, sys)
			}
		}

		if parallel && len(runnable) > 1 {
			if err := s.runParallel(ctx, p.name, runnable); err != nil {
				return err
			}
			continue
		}

		for _, sys := range runnable {
			if err := sys.Func(ctx); err != nil {
				return &SystemError{Schedule: s.label, Set: p.name, System: sys.Name, Tick: ctx.Tick, Err: err}
			}
		}
	}
	return nil
}

func (s *Schedule) runParallel(ctx *Context, set string, systems []System) error {
	g, gctx := errgroup.WithContext(ctx.Context)
	sctx := ctx.with(gctx)
	for _, sys := range systems {
		g.Go(func() error {
			if err := sys.Func(sctx); err != nil {
				return &SystemError{Schedule: s.label, Set: set, System: sys.Name, Tick: ctx.Tick, Err: err}
			}
			return nil
		})
	}
	return g.Wait()
}

// AddSystems registers systems against a schedule. Systems without a Func
// are rejected.
func (app *App) AddSystems(label Label, systems ...System) error {
	sched := app.schedule(label)
	for _, sys := range systems {
		if sys.Func == nil {
			return fmt.Errorf("%w: %s in schedule %s", ErrSystemNil, sys.Name, label)
		}
		sched.add(sys)
		app.logger.Debug("Added system", "schedule", label, "set", sys.Set, "system", sys.Name)
	}
	return nil
}

// OrderSets declares that within label, set first runs before set then.
func (app *App) OrderSets(label Label, first, then string) {
	app.schedule(label).orderSets(first, then)
}

// Schedule returns the schedule for label, creating it on first use.
func (app *App) Schedule(label Label) *Schedule {
	return app.schedule(label)
}

func (app *App) schedule(label Label) *Schedule {
	app.mu.Lock()
	defer app.mu.Unlock()
	sched, ok := app.schedules[label]
	if !ok {
		sched = newSchedule(label)
		app.schedules[label] = sched
	}
	return sched
}

func (app *App) lookupSchedule(label Label) (*Schedule, bool) {
	app.mu.RLock()
	defer app.mu.RUnlock()
	sched, ok := app.schedules[label]
	return sched, ok
}

// RunSchedule runs a single schedule immediately, outside the tick order.
// Running a label with no systems is a no-op.
func (app *App) RunSchedule(ctx context.Context, label Label) error {
	return app.runSchedule(ctx, label, app.tick.Load())
}

func (app *App) runSchedule(ctx context.Context, label Label, tick uint64) error {
	sched, ok := app.lookupSchedule(label)
	if !ok {
		return nil
	}
	sctx := &Context{Context: ctx, App: app, Tick: tick, Schedule: label}
	return sched.run(sctx, app.cfg.Parallel)
}
