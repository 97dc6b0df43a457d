// Package configwatcher reloads configuration when watched files change.
//
// The plugin watches the directories holding its files, so editors that
// replace a file on save are picked up, and debounces bursts of writes
// into one change per file.
package configwatcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/GoCodeAlone/stepper"
)

// PluginName is the plugin name.
const PluginName = "configwatcher"

// EventTypeConfigChanged is emitted after a change handler succeeds.
const EventTypeConfigChanged = "com.stepper.config.changed"

// DefaultDebounce is the quiet period before a change is handled.
const DefaultDebounce = 50 * time.Millisecond

var (
	ErrNoPaths          = errors.New("configwatcher: no paths to watch")
	ErrNoChangeFunc     = errors.New("configwatcher: change handler is nil")
	ErrAlreadyWatching  = errors.New("configwatcher: already watching")
	ErrWatcherNotActive = errors.New("configwatcher: not watching")
)

// ChangeFunc handles a change to path.
type ChangeFunc func(ctx context.Context, app *stepper.App, path string) error

// ChangedEvent is the payload of EventTypeConfigChanged.
type ChangedEvent struct {
	Path string `json:"path"`
}

// Plugin calls a ChangeFunc when one of its files is written or replaced.
type Plugin struct {
	paths    []string
	debounce time.Duration
	onChange ChangeFunc

	app    *stepper.App
	logger stepper.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPlugin creates a watcher for paths.
func NewPlugin(onChange ChangeFunc, paths ...string) *Plugin {
	return &Plugin{
		paths:    paths,
		debounce: DefaultDebounce,
		onChange: onChange,
	}
}

// WithDebounce sets the quiet period before a change is handled.
func (p *Plugin) WithDebounce(d time.Duration) *Plugin {
	p.debounce = d
	return p
}

func (p *Plugin) Name() string { return PluginName }

func (p *Plugin) Build(app *stepper.App) error {
	if app == nil {
		return stepper.ErrApplicationNil
	}
	if len(p.paths) == 0 {
		return ErrNoPaths
	}
	if p.onChange == nil {
		return ErrNoChangeFunc
	}
	p.app = app
	p.logger = app.Logger()
	return nil
}

// Start begins watching.
func (p *Plugin) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watcher != nil {
		return ErrAlreadyWatching
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	files := make(map[string]bool, len(p.paths))
	dirs := make(map[string]bool)
	for _, path := range p.paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			_ = watcher.Close()
			return fmt.Errorf("resolve %s: %w", path, err)
		}
		files[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.watcher, p.cancel, p.done = watcher, cancel, make(chan struct{})
	go p.watchLoop(loopCtx, watcher, files, p.done)

	p.logger.Info("Watching config files", "paths", p.paths, "debounce", p.debounce)
	return nil
}

// Stop ends the watch loop and waits for a running handler to return.
func (p *Plugin) Stop(context.Context) error {
	p.mu.Lock()
	watcher, cancel, done := p.watcher, p.cancel, p.done
	p.watcher, p.cancel, p.done = nil, nil, nil
	p.mu.Unlock()
	if watcher == nil {
		return ErrWatcherNotActive
	}

	cancel()
	err := watcher.Close()
	<-done
	return err
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, files map[string]bool, done chan struct{}) {
	defer close(done)

	debounce := time.NewTimer(p.debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			debounce.Stop()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || !files[name] {
				continue
			}
			pending[name] = true
			debounce.Reset(p.debounce)

		case <-debounce.C:
			for name := range pending {
				p.handle(ctx, name)
			}
			clear(pending)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("Config watcher error", "error", err)
		}
	}
}

func (p *Plugin) handle(ctx context.Context, path string) {
	if err := p.onChange(ctx, p.app, path); err != nil {
		p.logger.Error("Config reload failed", "path", path, "error", err)
		return
	}
	p.logger.Info("Config reloaded", "path", path)
	if err := p.app.EmitEvent(ctx, EventTypeConfigChanged, PluginName, ChangedEvent{Path: path}); err != nil {
		stepper.HandleEventEmissionError(err, p.logger, PluginName, EventTypeConfigChanged)
	}
}
