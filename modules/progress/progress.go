// Package progress tracks progress toward completion of tagged work.
//
// A tag is any Go type, normally an empty struct, that names one
// independent piece of work:
//
//	type LevelLoad struct{}
//
// Plugin[T] keeps a Tracker[T] resource. Reporter systems created with
// TrackProgress[T] add a Progress value to it every tick, a check system sums
// the reports and raises Done[T] the first time done >= required, and a
// reset system clears the sums for the next tick. CurrentlyTracking[T] gates
// other systems on the tracker still being in progress.
//
// EntityPlugin[T] does the same with Tracker[T] components, raising Done[T]
// targeted at each entity that completes.
package progress

import (
	"fmt"
)

// Progress is one reporter's contribution for one tick.
type Progress struct {
	Done     uint32 `json:"done"`
	Required uint32 `json:"required"`
}

// Fraction returns Done/Required clamped to [0, 1]; 0 when nothing is required.
func (p Progress) Fraction() float64 {
	return fraction(uint64(p.Done), uint64(p.Required))
}

func (p Progress) String() string {
	return fmt.Sprintf("%d/%d", p.Done, p.Required)
}

func fraction(done, total uint64) float64 {
	if total == 0 {
		return 0
	}
	if done >= total {
		return 1
	}
	return float64(done) / float64(total)
}
