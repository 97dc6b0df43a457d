package progress

import (
	"fmt"
	"sync"
)

// Phase is the state of a tracking episode.
type Phase uint8

const (
	PhaseTracking Phase = iota
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseTracking:
		return "tracking"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// MarshalText renders the phase by name in JSON and YAML.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "tracking":
		*p = PhaseTracking
	case "complete":
		*p = PhaseComplete
	default:
		return fmt.Errorf("unknown phase %q", text)
	}
	return nil
}

// Tracker accumulates the progress reported for tag T during one tick.
// It is used as an app resource by Plugin and as an entity component by
// EntityPlugin. Reporters may add concurrently.
type Tracker[T any] struct {
	mu          sync.Mutex
	done        uint64
	total       uint64
	phase       Phase
	episode     uint64
	completedAt uint64
}

// NewTracker returns a tracker in its first episode.
func NewTracker[T any]() *Tracker[T] {
	return &Tracker[T]{episode: 1}
}

// Track records done out of total units of work. Both fields are summed
// as reported; a zero total only keeps the tick from completing.
func (t *Tracker[T]) Track(done, total uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done += uint64(done)
	t.total += uint64(total)
}

// Add records a Progress report.
func (t *Tracker[T]) Add(p Progress) {
	t.Track(p.Done, p.Required)
}

// Work returns the units done and required so far this tick.
func (t *Tracker[T]) Work() (done, total uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done, t.total
}

// Fraction returns the tick's progress from 0 (nothing done) to 1.
func (t *Tracker[T]) Fraction() float64 {
	done, total := t.Work()
	return fraction(done, total)
}

// Phase returns the current phase.
func (t *Tracker[T]) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// Tracking reports whether the current episode is still in progress.
func (t *Tracker[T]) Tracking() bool {
	return t.Phase() == PhaseTracking
}

// Episode returns the 1-based episode number.
func (t *Tracker[T]) Episode() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.episode
}

// CompletedAt returns the tick the current episode completed at, 0 while
// tracking.
func (t *Tracker[T]) CompletedAt() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completedAt
}

// complete moves a tracking episode whose sums reached the total to
// PhaseComplete. It reports the completed work and whether the transition
// happened.
func (t *Tracker[T]) complete(tick uint64) (work uint64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != PhaseTracking || t.total == 0 || t.done < t.total {
		return 0, false
	}
	t.phase = PhaseComplete
	t.completedAt = tick
	return t.total, true
}

func (t *Tracker[T]) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = 0
	t.total = 0
}

// restart begins a new episode and returns its number.
func (t *Tracker[T]) restart() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = 0
	t.total = 0
	t.phase = PhaseTracking
	t.completedAt = 0
	t.episode++
	return t.episode
}

func (t *Tracker[T]) snapshot(tag string, tick uint64) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		Tag:         tag,
		Done:        t.done,
		Required:    t.total,
		Fraction:    fraction(t.done, t.total),
		Phase:       t.phase,
		Episode:     t.episode,
		CompletedAt: t.completedAt,
		Tick:        tick,
	}
}
