package progress

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/GoCodeAlone/stepper"
)

// Snapshot is the state of one tracker as of its last check.
// Done and Required are the sums of the most recent tick that had reports,
// so a tracker whose reporters have gone quiet keeps showing where it got to.
type Snapshot struct {
	Tag         string  `json:"tag"`
	Done        uint64  `json:"done"`
	Required    uint64  `json:"required"`
	Fraction    float64 `json:"fraction"`
	Phase       Phase   `json:"phase"`
	Episode     uint64  `json:"episode"`
	CompletedAt uint64  `json:"completedAt,omitempty"`
	Tick        uint64  `json:"tick"`
}

type restartFunc func(ctx context.Context) error

type registryEntry struct {
	snapshot Snapshot
	restart  restartFunc
}

// Registry holds the latest Snapshot of every tracker in the app, keyed by
// tag name. It is read outside the tick loop by the status API and the
// metrics exporter.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry
}

func newRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

// RegistryOf returns the app's registry, creating it on first use.
func RegistryOf(app *stepper.App) *Registry {
	r, _ := stepper.InitResource(app, newRegistry)
	return r
}

// register adds an entry for name, failing if one exists.
func (r *Registry) register(name string, snap Snapshot, restart restartFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrTagAlreadyRegistered, name)
	}
	r.entries[name] = &registryEntry{snapshot: snap, restart: restart}
	return nil
}

// record stores the snapshot of a checked tracker. A tick without reports
// keeps the sums of the episode's last reported tick.
func (r *Registry) record(snap Snapshot, restart restartFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[snap.Tag]
	if !ok {
		r.entries[snap.Tag] = &registryEntry{snapshot: snap, restart: restart}
		return
	}
	if snap.Done == 0 && snap.Required == 0 && entry.snapshot.Episode == snap.Episode {
		snap.Done = entry.snapshot.Done
		snap.Required = entry.snapshot.Required
		snap.Fraction = entry.snapshot.Fraction
	}
	entry.snapshot = snap
}

// overwrite replaces a snapshot without carrying previous sums forward.
func (r *Registry) overwrite(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[snap.Tag]; ok {
		entry.snapshot = snap
	}
}

// prune drops entries under prefix that are not in keep.
func (r *Registry) prune(prefix string, keep map[string]bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name := range r.entries {
		if strings.HasPrefix(name, prefix) && !keep[name] {
			delete(r.entries, name)
		}
	}
}

// Snapshots returns every snapshot ordered by tag name.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := slices.Sorted(maps.Keys(r.entries))
	out := make([]Snapshot, 0, len(names))
	for _, name := range names {
		out = append(out, r.entries[name].snapshot)
	}
	return out
}

// Snapshot returns the snapshot for name.
func (r *Registry) Snapshot(name string) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	if !ok {
		return Snapshot{}, false
	}
	return entry.snapshot, true
}

// Restart starts a new episode for the tracker registered as name.
func (r *Registry) Restart(ctx context.Context, name string) error {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTagNotFound, name)
	}
	return entry.restart(ctx)
}
