package stepper

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// App is the plugin host: it owns plugins, schedules, resources, the world
// and the observer subject, and drives ticks.
type App struct {
	cfg         *Config
	cfgSections map[string]ConfigProvider
	feeders     []Feeder
	logger      Logger

	mu          sync.RWMutex // guards plugins, cfgSections and schedules
	plugins     map[string]Plugin
	pluginOrder []string
	schedules   map[Label]*Schedule

	lifecycleMu sync.Mutex
	building    atomic.Bool
	built       atomic.Bool
	started     bool
	buildOrder  []string

	resources *resources
	world     *World

	triggerMu sync.RWMutex
	triggers  map[reflect.Type][]any

	observers     map[string]*observerRegistration // key is observer ID
	observerMutex sync.RWMutex
	observerWG    sync.WaitGroup

	tick       atomic.Uint64
	exitCh     chan struct{}
	exitOnce   sync.Once
	exitCode   atomic.Int32
	intervalCh chan time.Duration
}

// NewApp creates an app with the provided options. A logger is mandatory.
func NewApp(opts ...Option) (*App, error) {
	app := &App{
		cfg:         &Config{},
		cfgSections: make(map[string]ConfigProvider),
		plugins:     make(map[string]Plugin),
		schedules:   make(map[Label]*Schedule),
		resources:   newResources(),
		world:       NewWorld(),
		triggers:    make(map[reflect.Type][]any),
		observers:   make(map[string]*observerRegistration),
		exitCh:      make(chan struct{}),
		intervalCh:  make(chan time.Duration, 1),
	}

	b := &appBuilder{app: app}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	if app.logger == nil {
		return nil, ErrLoggerNotSet
	}

	for _, label := range TickOrder() {
		app.schedules[label] = newSchedule(label)
	}

	for _, o := range b.observers {
		if err := app.RegisterObserver(o.observer, o.eventTypes...); err != nil {
			return nil, err
		}
	}

	if err := app.AddPlugins(b.plugins...); err != nil {
		return nil, err
	}
	return app, nil
}

// Logger returns the app's logger.
func (app *App) Logger() Logger {
	return app.logger
}

// World returns the app's entity store.
func (app *App) World() *World {
	return app.world
}

// Tick returns the number of ticks run so far.
func (app *App) Tick() uint64 {
	return app.tick.Load()
}

// AddPlugins registers plugins. Plugins must be added before Init; a
// plugin's Build cannot add further plugins.
func (app *App) AddPlugins(plugins ...Plugin) error {
	if app.building.Load() || app.built.Load() {
		return ErrPluginsAlreadyBuilt
	}

	for _, p := range plugins {
		if p == nil {
			return ErrPluginNil
		}
		app.mu.Lock()
		if _, exists := app.plugins[p.Name()]; exists {
			app.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrPluginAlreadyRegistered, p.Name())
		}
		app.plugins[p.Name()] = p
		app.pluginOrder = append(app.pluginOrder, p.Name())
		app.mu.Unlock()

		app.logger.Debug("Registered plugin", "plugin", p.Name(), "type", reflect.TypeOf(p))
		app.emitEvent(context.Background(), EventTypePluginRegistered, map[string]any{
			"pluginName": p.Name(),
			"pluginType": reflect.TypeOf(p).String(),
		})
	}
	return nil
}

// Plugin returns a registered plugin by name.
func (app *App) Plugin(name string) (Plugin, bool) {
	app.mu.RLock()
	defer app.mu.RUnlock()
	p, ok := app.plugins[name]
	return p, ok
}

// Init registers plugin config sections, loads configuration, and builds
// every plugin in dependency order.
func (app *App) Init(ctx context.Context) error {
	app.lifecycleMu.Lock()
	defer app.lifecycleMu.Unlock()

	if app.built.Load() {
		return ErrAppAlreadyInit
	}
	app.building.Store(true)
	defer app.building.Store(false)

	for _, name := range app.registeredPlugins() {
		p, _ := app.Plugin(name)
		configurable, ok := p.(Configurable)
		if !ok {
			continue
		}
		if err := configurable.RegisterConfig(app); err != nil {
			return fmt.Errorf("failed to register config for plugin %s: %w", name, err)
		}
	}

	if err := app.loadConfig(); err != nil {
		app.emitEvent(ctx, EventTypeApplicationFailed, map[string]any{"phase": "config", "error": err.Error()})
		return fmt.Errorf("failed to load app config: %w", err)
	}

	order, err := app.resolveDependencies()
	if err != nil {
		app.emitEvent(ctx, EventTypeApplicationFailed, map[string]any{"phase": "dependencies", "error": err.Error()})
		return fmt.Errorf("failed to resolve dependencies: %w", err)
	}

	for _, name := range order {
		p, _ := app.Plugin(name)
		if err := p.Build(app); err != nil {
			app.emitEvent(ctx, EventTypeApplicationFailed, map[string]any{"phase": "build", "plugin": name, "error": err.Error()})
			return fmt.Errorf("failed to build plugin '%s': %w", name, err)
		}
		app.logger.Info("Built plugin", "plugin", name)
		app.emitEvent(ctx, EventTypePluginBuilt, map[string]any{"pluginName": name})
	}

	app.buildOrder = order
	app.built.Store(true)
	return nil
}

// Start starts Startable plugins in dependency order.
func (app *App) Start(ctx context.Context) error {
	app.lifecycleMu.Lock()
	defer app.lifecycleMu.Unlock()

	if !app.built.Load() {
		return ErrAppNotInitialized
	}
	if app.started {
		return ErrAppAlreadyStarted
	}

	for _, name := range app.buildOrder {
		p, _ := app.Plugin(name)
		startable, ok := p.(Startable)
		if !ok {
			continue
		}
		app.logger.Info("Starting plugin", "plugin", name)
		if err := startable.Start(ctx); err != nil {
			app.emitEvent(ctx, EventTypeApplicationFailed, map[string]any{"phase": "start", "plugin": name, "error": err.Error()})
			return fmt.Errorf("failed to start plugin %s: %w", name, err)
		}
	}

	app.started = true
	app.emitEvent(ctx, EventTypeApplicationStarted, nil)
	return nil
}

// Stop stops Stoppable plugins in reverse dependency order. Every plugin is
// asked to stop; the errors are joined.
func (app *App) Stop(ctx context.Context) error {
	app.lifecycleMu.Lock()
	defer app.lifecycleMu.Unlock()

	if !app.started {
		return ErrAppNotStarted
	}

	order := slices.Clone(app.buildOrder)
	slices.Reverse(order)

	var errs []error
	for _, name := range order {
		p, _ := app.Plugin(name)
		stoppable, ok := p.(Stoppable)
		if !ok {
			continue
		}
		app.logger.Info("Stopping plugin", "plugin", name)
		if err := stoppable.Stop(ctx); err != nil {
			app.logger.Error("Error stopping plugin", "plugin", name, "error", err)
			errs = append(errs, fmt.Errorf("plugin %s: %w", name, err))
		}
	}

	app.started = false
	app.emitEvent(ctx, EventTypeApplicationStopped, map[string]any{"ticks": app.Tick()})
	return errors.Join(errs...)
}

// Update runs one tick: every built-in schedule, in order.
// The first failing system aborts the tick.
func (app *App) Update(ctx context.Context) error {
	if !app.built.Load() {
		return ErrAppNotInitialized
	}

	tick := app.tick.Add(1)
	for _, label := range TickOrder() {
		if err := app.runSchedule(ctx, label, tick); err != nil {
			app.emitEvent(ctx, EventTypeTickFailed, map[string]any{"tick": tick, "schedule": string(label), "error": err.Error()})
			return err
		}
	}

	if limit := app.cfg.MaxTicks; limit > 0 && tick >= limit {
		app.logger.Debug("Tick limit reached", "ticks", tick)
		app.Exit(0)
	}
	return nil
}

// Exit asks Run to stop after the current tick. Only the first code is kept.
func (app *App) Exit(code int) {
	app.exitOnce.Do(func() {
		app.exitCode.Store(int32(code))
		close(app.exitCh)
	})
}

// Exiting reports whether Exit has been called.
func (app *App) Exiting() bool {
	select {
	case <-app.exitCh:
		return true
	default:
		return false
	}
}

// ExitCode returns the code passed to Exit.
func (app *App) ExitCode() int {
	return int(app.exitCode.Load())
}

func (app *App) registeredPlugins() []string {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return slices.Clone(app.pluginOrder)
}

// resolveDependencies returns plugins in build order. Plugins with no
// dependency relation keep registration order.
func (app *App) resolveDependencies() ([]string, error) {
	names := app.registeredPlugins()

	graph := make(map[string][]string, len(names))
	for _, name := range names {
		p, _ := app.Plugin(name)
		if aware, ok := p.(DependencyAware); ok {
			graph[name] = aware.Dependencies()
		}
	}

	var result []string
	visited := make(map[string]bool)
	temp := make(map[string]bool)

	var visit func(string) error
	visit = func(node string) error {
		if temp[node] {
			return fmt.Errorf("%w: %s", ErrCircularDependency, node)
		}
		if visited[node] {
			return nil
		}
		temp[node] = true

		for _, dep := range graph[node] {
			if _, exists := app.Plugin(dep); !exists {
				return fmt.Errorf("%w: %s depends on non-existent plugin %s",
					ErrPluginDependencyMissing, node, dep)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		visited[node] = true
		temp[node] = false
		result = append(result, node)
		return nil
	}

	for _, node := range names {
		if !visited[node] {
			if err := visit(node); err != nil {
				return nil, err
			}
		}
	}

	app.logger.Debug("Plugin build order", "order", result)
	return result, nil
}
