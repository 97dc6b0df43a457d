package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type levelLoad struct{}

func TestProgressFraction(t *testing.T) {
	tests := []struct {
		name string
		p    Progress
		want float64
	}{
		{"zero required", Progress{Done: 5, Required: 0}, 0},
		{"none done", Progress{Done: 0, Required: 10}, 0},
		{"partial", Progress{Done: 1000, Required: 5000}, 0.2},
		{"complete", Progress{Done: 5000, Required: 5000}, 1},
		{"overshoot clamps", Progress{Done: 7000, Required: 5000}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.p.Fraction(), 1e-9)
		})
	}
	assert.Equal(t, "1/2", Progress{Done: 1, Required: 2}.String())
}

func TestTrackerSums(t *testing.T) {
	tr := NewTracker[levelLoad]()
	tr.Add(Progress{Done: 1, Required: 4})
	tr.Track(3, 6)
	tr.Add(Progress{Done: 2, Required: 0})

	done, total := tr.Work()
	assert.Equal(t, uint64(6), done)
	assert.Equal(t, uint64(10), total)
	assert.InDelta(t, 0.6, tr.Fraction(), 1e-9)
	assert.Equal(t, uint64(1), tr.Episode())
	assert.True(t, tr.Tracking())
}

func TestTrackerSumsDoNotOverflow(t *testing.T) {
	tr := NewTracker[levelLoad]()
	const top = ^uint32(0)
	tr.Track(top, top)
	tr.Track(top, top)

	done, total := tr.Work()
	assert.Equal(t, 2*uint64(top), done)
	assert.Equal(t, 2*uint64(top), total)
}

func TestTrackerConcurrentAdds(t *testing.T) {
	tr := NewTracker[levelLoad]()
	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Track(1, 2)
		}()
	}
	wg.Wait()

	done, total := tr.Work()
	assert.Equal(t, uint64(64), done)
	assert.Equal(t, uint64(128), total)
}

func TestTrackerCompletion(t *testing.T) {
	tr := NewTracker[levelLoad]()

	_, ok := tr.complete(1)
	assert.False(t, ok, "an empty tick is never complete")

	tr.Track(4, 5)
	_, ok = tr.complete(2)
	assert.False(t, ok)

	tr.reset()
	tr.Track(6, 5)
	work, ok := tr.complete(3)
	assert.True(t, ok, "done beyond required still completes")
	assert.Equal(t, uint64(5), work)
	assert.Equal(t, PhaseComplete, tr.Phase())
	assert.Equal(t, uint64(3), tr.CompletedAt())

	_, ok = tr.complete(4)
	assert.False(t, ok, "completion fires once per episode")

	assert.Equal(t, uint64(2), tr.restart())
	assert.Equal(t, PhaseTracking, tr.Phase())
	assert.Zero(t, tr.CompletedAt())
	done, total := tr.Work()
	assert.Zero(t, done)
	assert.Zero(t, total)
}

func TestPhaseText(t *testing.T) {
	assert.Equal(t, "tracking", PhaseTracking.String())
	assert.Equal(t, "complete", PhaseComplete.String())
	assert.Equal(t, "unknown", Phase(9).String())

	text, err := PhaseComplete.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "complete", string(text))

	var p Phase
	assert.NoError(t, p.UnmarshalText([]byte("complete")))
	assert.Equal(t, PhaseComplete, p)
	assert.Error(t, p.UnmarshalText([]byte("paused")))
}
