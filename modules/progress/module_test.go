package progress

import (
	"context"
	"errors"
	"sync"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/stepper"
)

type assetDownload struct{}

var levelLoadTag = stepper.TypeName[levelLoad]()

func newApp(t *testing.T, opts ...stepper.Option) *stepper.App {
	t.Helper()
	app, err := stepper.NewApp(append([]stepper.Option{stepper.WithLogger(stepper.NopLogger{})}, opts...)...)
	require.NoError(t, err)
	return app
}

func initApp(t *testing.T, opts ...stepper.Option) *stepper.App {
	t.Helper()
	app := newApp(t, opts...)
	require.NoError(t, app.Init(context.Background()))
	return app
}

func constant(p Progress) ReporterFunc {
	return func(*stepper.Context) (Progress, error) { return p, nil }
}

func gateAt(app *stepper.App, cond stepper.Condition) bool {
	return cond(&stepper.Context{Context: context.Background(), App: app, Tick: app.Tick()})
}

type eventLog struct {
	mu     sync.Mutex
	events []cloudevents.Event
}

func (l *eventLog) observe(_ context.Context, e cloudevents.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) ofType(eventType string) []cloudevents.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []cloudevents.Event
	for _, e := range l.events {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// The README example: a time-based reporter reaches 5000/5000 at tick 5.
func TestReadmeScenario(t *testing.T) {
	ctx := context.Background()
	reports := map[uint64]uint32{1: 1000, 2: 2000, 3: 3000, 4: 4000, 5: 5000}

	app := initApp(t, stepper.WithPlugins(NewPlugin[levelLoad]()))

	var reportedAt, doneAt []uint64
	require.NoError(t, app.AddSystems(stepper.Update,
		TrackProgress[levelLoad]("loading", func(ctx *stepper.Context) (Progress, error) {
			reportedAt = append(reportedAt, ctx.Tick)
			return Progress{Done: reports[ctx.Tick], Required: 5000}, nil
		}).RunIf(CurrentlyTracking[levelLoad]()),
	))
	require.NoError(t, OnDone[levelLoad](app, stepper.NewSystem("finished", func(ctx *stepper.Context) error {
		doneAt = append(doneAt, ctx.Tick)
		return nil
	})))

	for tick := uint64(1); tick <= 8; tick++ {
		require.NoError(t, app.Update(ctx))
		assert.Equal(t, tick < 5, gateAt(app, CurrentlyTracking[levelLoad]()), "gate after tick %d", tick)
	}

	assert.Equal(t, []uint64{5}, doneAt)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, reportedAt)
}

func TestAggregatesAllReporters(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		name := "sequential"
		if parallel {
			name = "parallel"
		}
		t.Run(name, func(t *testing.T) {
			app := initApp(t,
				stepper.WithConfig(&stepper.Config{Parallel: parallel}),
				stepper.WithPlugins(NewPlugin[levelLoad]()),
			)
			require.NoError(t, app.AddSystems(stepper.Update,
				TrackProgress[levelLoad]("a", constant(Progress{Done: 1, Required: 4})),
				TrackProgress[levelLoad]("b", constant(Progress{Done: 2, Required: 3})),
				TrackProgress[levelLoad]("c", constant(Progress{Done: 0, Required: 3})),
			))

			require.NoError(t, app.Update(context.Background()))

			snap, ok := RegistryOf(app).Snapshot(levelLoadTag)
			require.True(t, ok)
			assert.Equal(t, uint64(3), snap.Done)
			assert.Equal(t, uint64(10), snap.Required)
			assert.InDelta(t, 0.3, snap.Fraction, 1e-9)
			assert.Equal(t, PhaseTracking, snap.Phase)
			assert.Equal(t, uint64(1), snap.Tick)
		})
	}
}

func TestSumsResetEveryTick(t *testing.T) {
	app := initApp(t, stepper.WithPlugins(NewPlugin[levelLoad]()))
	require.NoError(t, app.AddSystems(stepper.Update,
		TrackProgress[levelLoad]("half", constant(Progress{Done: 1, Required: 2})),
	))

	for range 3 {
		require.NoError(t, app.Update(context.Background()))
	}

	tracker, ok := stepper.GetResource[Tracker[levelLoad]](app)
	require.True(t, ok)
	done, total := tracker.Work()
	assert.Zero(t, done)
	assert.Zero(t, total)

	snap, _ := RegistryOf(app).Snapshot(levelLoadTag)
	assert.Equal(t, uint64(1), snap.Done, "sums do not accumulate across ticks")
	assert.Equal(t, uint64(2), snap.Required)
}

func TestEmptyTicksNeverComplete(t *testing.T) {
	app := initApp(t, stepper.WithPlugins(NewPlugin[levelLoad]()))
	var fired int
	ObserveDone(app, func(*stepper.Context, Done[levelLoad]) error {
		fired++
		return nil
	})

	for range 5 {
		require.NoError(t, app.Update(context.Background()))
	}
	assert.Zero(t, fired)
	assert.True(t, gateAt(app, CurrentlyTracking[levelLoad]()), "silence is not completion")
}

func TestZeroRequiredReports(t *testing.T) {
	t.Run("alone never completes", func(t *testing.T) {
		app := initApp(t, stepper.WithPlugins(NewPlugin[levelLoad]()))
		require.NoError(t, app.AddSystems(stepper.Update,
			TrackProgress[levelLoad]("empty", constant(Progress{Done: 10, Required: 0})),
		))

		require.NoError(t, app.Update(context.Background()))
		assert.True(t, gateAt(app, CurrentlyTracking[levelLoad]()))

		snap, _ := RegistryOf(app).Snapshot(levelLoadTag)
		assert.Equal(t, uint64(10), snap.Done)
		assert.Zero(t, snap.Required)
	})

	t.Run("done units still count", func(t *testing.T) {
		app := initApp(t, stepper.WithPlugins(NewPlugin[levelLoad]()))
		require.NoError(t, app.AddSystems(stepper.Update,
			TrackProgress[levelLoad]("work", constant(Progress{Done: 5, Required: 0})),
			TrackProgress[levelLoad]("budget", constant(Progress{Done: 0, Required: 5})),
		))
		var got []Done[levelLoad]
		ObserveDone(app, func(_ *stepper.Context, d Done[levelLoad]) error {
			got = append(got, d)
			return nil
		})

		require.NoError(t, app.Update(context.Background()))

		require.Len(t, got, 1)
		assert.Equal(t, uint64(5), got[0].Work())
		snap, _ := RegistryOf(app).Snapshot(levelLoadTag)
		assert.Equal(t, uint64(5), snap.Done)
		assert.Equal(t, uint64(5), snap.Required)
		assert.False(t, gateAt(app, CurrentlyTracking[levelLoad]()))
	})
}

func TestDoneFiresOnceWhileComplete(t *testing.T) {
	app := initApp(t, stepper.WithPlugins(NewPlugin[levelLoad]()))
	// not gated: keeps reporting after completion
	require.NoError(t, app.AddSystems(stepper.Update,
		TrackProgress[levelLoad]("always-done", constant(Progress{Done: 3, Required: 3})),
	))

	var got []Done[levelLoad]
	ObserveDone(app, func(_ *stepper.Context, d Done[levelLoad]) error {
		got = append(got, d)
		return nil
	})

	for range 4 {
		require.NoError(t, app.Update(context.Background()))
	}

	require.Len(t, got, 1)
	assert.Equal(t, uint64(3), got[0].Work())
	assert.Equal(t, uint64(1), got[0].Tick)
	assert.Equal(t, uint64(1), got[0].Episode)
	assert.Equal(t, stepper.NoEntity, got[0].Entity)

	snap, _ := RegistryOf(app).Snapshot(levelLoadTag)
	assert.Equal(t, PhaseComplete, snap.Phase)
	assert.Equal(t, uint64(1), snap.CompletedAt)
	assert.Equal(t, uint64(4), snap.Tick)
}

func TestRestartStartsNewEpisode(t *testing.T) {
	ctx := context.Background()
	events := &eventLog{}
	app := initApp(t,
		stepper.WithObserver("events", events.observe),
		stepper.WithPlugins(NewPlugin[levelLoad]()),
	)
	require.NoError(t, app.AddSystems(stepper.Update,
		TrackProgress[levelLoad]("loading", constant(Progress{Done: 1, Required: 1})).
			RunIf(CurrentlyTracking[levelLoad]()),
	))

	var episodes []uint64
	ObserveDone(app, func(_ *stepper.Context, d Done[levelLoad]) error {
		episodes = append(episodes, d.Episode)
		return nil
	})

	require.NoError(t, app.Update(ctx))
	require.NoError(t, app.Update(ctx))
	assert.False(t, gateAt(app, CurrentlyTracking[levelLoad]()))

	require.NoError(t, Restart[levelLoad](ctx, app))
	assert.True(t, gateAt(app, CurrentlyTracking[levelLoad]()))

	snap, _ := RegistryOf(app).Snapshot(levelLoadTag)
	assert.Equal(t, PhaseTracking, snap.Phase)
	assert.Equal(t, uint64(2), snap.Episode)
	assert.Zero(t, snap.Done)

	require.NoError(t, app.Update(ctx))
	assert.Equal(t, []uint64{1, 2}, episodes)

	app.WaitObservers()
	restarted := events.ofType(EventTypeRestarted)
	require.Len(t, restarted, 1)
	var payload RestartedEvent
	require.NoError(t, restarted[0].DataAs(&payload))
	assert.Equal(t, levelLoadTag, payload.Tag)
	assert.Equal(t, uint64(2), payload.Episode)
	assert.Len(t, events.ofType(EventTypeCompleted), 2)
}

func TestRestartUnregisteredTag(t *testing.T) {
	app := initApp(t)
	err := Restart[levelLoad](context.Background(), app)
	assert.ErrorIs(t, err, ErrTagNotRegistered)
}

func TestRegistryRestartByName(t *testing.T) {
	ctx := context.Background()
	app := initApp(t, stepper.WithPlugins(NewPlugin[levelLoad]().WithTagName("level")))
	require.NoError(t, app.AddSystems(stepper.Update,
		TrackProgress[levelLoad]("loading", constant(Progress{Done: 1, Required: 1})),
	))
	require.NoError(t, app.Update(ctx))

	registry := RegistryOf(app)
	snap, ok := registry.Snapshot("level")
	require.True(t, ok)
	assert.Equal(t, PhaseComplete, snap.Phase)

	require.NoError(t, registry.Restart(ctx, "level"))
	snap, _ = registry.Snapshot("level")
	assert.Equal(t, PhaseTracking, snap.Phase)
	assert.Equal(t, uint64(2), snap.Episode)

	assert.ErrorIs(t, registry.Restart(ctx, "nope"), ErrTagNotFound)
}

func TestGateFalseWhenNeverRegistered(t *testing.T) {
	app := initApp(t)
	assert.False(t, gateAt(app, CurrentlyTracking[levelLoad]()))
}

func TestIndependentTags(t *testing.T) {
	app := initApp(t, stepper.WithPlugins(NewPlugin[levelLoad](), NewPlugin[assetDownload]()))
	require.NoError(t, app.AddSystems(stepper.Update,
		TrackProgress[levelLoad]("level", constant(Progress{Done: 2, Required: 2})),
		TrackProgress[assetDownload]("assets", constant(Progress{Done: 1, Required: 2})),
	))

	require.NoError(t, app.Update(context.Background()))
	assert.False(t, gateAt(app, CurrentlyTracking[levelLoad]()))
	assert.True(t, gateAt(app, CurrentlyTracking[assetDownload]()))
	assert.Len(t, RegistryOf(app).Snapshots(), 2)
}

func TestDoubleRegistration(t *testing.T) {
	t.Run("same plugin name", func(t *testing.T) {
		_, err := stepper.NewApp(
			stepper.WithLogger(stepper.NopLogger{}),
			stepper.WithPlugins(NewPlugin[levelLoad](), NewPlugin[levelLoad]()),
		)
		assert.ErrorIs(t, err, stepper.ErrPluginAlreadyRegistered)
	})

	t.Run("same tag type", func(t *testing.T) {
		app := newApp(t, stepper.WithPlugins(
			NewPlugin[levelLoad](),
			NewPlugin[levelLoad]().WithTagName("again"),
		))
		err := app.Init(context.Background())
		assert.ErrorIs(t, err, ErrTagAlreadyRegistered)
	})

	t.Run("same tag name", func(t *testing.T) {
		_, err := stepper.NewApp(
			stepper.WithLogger(stepper.NopLogger{}),
			stepper.WithPlugins(
				NewPlugin[levelLoad]().WithTagName("shared"),
				NewPlugin[assetDownload]().WithTagName("shared"),
			),
		)
		assert.ErrorIs(t, err, stepper.ErrPluginAlreadyRegistered)
	})

	t.Run("entity tag type", func(t *testing.T) {
		app := newApp(t, stepper.WithPlugins(
			NewEntityPlugin[levelLoad](),
			NewEntityPlugin[levelLoad]().WithTagName("again"),
		))
		err := app.Init(context.Background())
		assert.ErrorIs(t, err, ErrTagAlreadyRegistered)
	})
}

func TestReporterErrors(t *testing.T) {
	t.Run("tag not registered", func(t *testing.T) {
		app := initApp(t)
		require.NoError(t, app.AddSystems(stepper.Update,
			TrackProgress[levelLoad]("orphan", constant(Progress{Done: 1, Required: 1})),
		))
		err := app.Update(context.Background())
		assert.ErrorIs(t, err, ErrTagNotRegistered)
	})

	t.Run("reporter fails", func(t *testing.T) {
		errReport := errors.New("disk unreadable")
		app := initApp(t, stepper.WithPlugins(NewPlugin[levelLoad]()))
		require.NoError(t, app.AddSystems(stepper.Update,
			TrackProgress[levelLoad]("broken", func(*stepper.Context) (Progress, error) {
				return Progress{}, errReport
			}),
		))
		err := app.Update(context.Background())
		assert.ErrorIs(t, err, errReport)
	})

	t.Run("nil reporter", func(t *testing.T) {
		app := initApp(t)
		err := app.AddSystems(stepper.Update, TrackProgress[levelLoad]("nil", nil))
		assert.ErrorIs(t, err, stepper.ErrSystemNil)
	})

	t.Run("done observer fails", func(t *testing.T) {
		errObserver := errors.New("observer failed")
		app := initApp(t, stepper.WithPlugins(NewPlugin[levelLoad]()))
		require.NoError(t, app.AddSystems(stepper.Update,
			TrackProgress[levelLoad]("done", constant(Progress{Done: 1, Required: 1})),
		))
		ObserveDone(app, func(*stepper.Context, Done[levelLoad]) error { return errObserver })

		err := app.Update(context.Background())
		assert.ErrorIs(t, err, errObserver)
	})
}

func TestCustomSchedules(t *testing.T) {
	app := initApp(t, stepper.WithPlugins(
		NewPlugin[levelLoad]().WithSchedules(stepper.Update, stepper.Update),
	))

	var doneTick uint64
	ObserveDone(app, func(ctx *stepper.Context, _ Done[levelLoad]) error {
		doneTick = ctx.Tick
		return nil
	})

	var seenAfterReset []uint64
	require.NoError(t, app.AddSystems(stepper.Update,
		TrackProgress[levelLoad]("loading", constant(Progress{Done: 2, Required: 2})),
	))
	require.NoError(t, app.AddSystems(stepper.PostUpdate, stepper.NewSystem("inspect", func(ctx *stepper.Context) error {
		tracker, _ := stepper.GetResource[Tracker[levelLoad]](ctx.App)
		_, total := tracker.Work()
		seenAfterReset = append(seenAfterReset, total)
		return nil
	})))

	require.NoError(t, app.Update(context.Background()))
	assert.Equal(t, uint64(1), doneTick)
	assert.Equal(t, []uint64{0}, seenAfterReset, "reset ran in Update after the check")
}

func TestLifecycleEvents(t *testing.T) {
	events := &eventLog{}
	app := initApp(t,
		stepper.WithObserver("events", events.observe, EventTypeRegistered, EventTypeCompleted),
		stepper.WithPlugins(NewPlugin[levelLoad]()),
	)
	require.NoError(t, app.AddSystems(stepper.Update,
		TrackProgress[levelLoad]("loading", constant(Progress{Done: 7, Required: 5})),
	))
	require.NoError(t, app.Update(context.Background()))
	app.WaitObservers()

	registered := events.ofType(EventTypeRegistered)
	require.Len(t, registered, 1)
	var reg RegisteredEvent
	require.NoError(t, registered[0].DataAs(&reg))
	assert.Equal(t, levelLoadTag, reg.Tag)
	assert.Equal(t, stepper.PostUpdate, reg.CheckSchedule)
	assert.Equal(t, stepper.Last, reg.ResetSchedule)
	assert.False(t, reg.PerEntity)

	completed := events.ofType(EventTypeCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, EventSource, completed[0].Source())
	var done CompletedEvent
	require.NoError(t, completed[0].DataAs(&done))
	assert.Equal(t, uint64(5), done.Work)
	assert.Equal(t, uint64(1), done.Tick)
	assert.Equal(t, uint64(1), done.Episode)
}

func TestDoneObserverErrorKeepsFollowUps(t *testing.T) {
	errObserver := errors.New("observer failed")
	events := &eventLog{}
	app := initApp(t,
		stepper.WithObserver("events", events.observe, EventTypeCompleted),
		stepper.WithPlugins(NewPlugin[levelLoad]()),
	)
	require.NoError(t, app.AddSystems(stepper.Update,
		TrackProgress[levelLoad]("loading", constant(Progress{Done: 2, Required: 2})),
	))
	ObserveDone(app, func(*stepper.Context, Done[levelLoad]) error {
		return errObserver
	})
	var followUps int
	require.NoError(t, OnDone[levelLoad](app, stepper.NewSystem("after", func(*stepper.Context) error {
		followUps++
		return nil
	})))

	err := app.Update(context.Background())
	require.ErrorIs(t, err, errObserver)
	app.WaitObservers()

	assert.Equal(t, 1, followUps)
	assert.Len(t, events.ofType(EventTypeCompleted), 1)
	assert.False(t, gateAt(app, CurrentlyTracking[levelLoad]()))
}

func TestPluginNames(t *testing.T) {
	assert.Equal(t, "progress:"+levelLoadTag, NewPlugin[levelLoad]().Name())
	assert.Equal(t, "progress:custom", NewPlugin[levelLoad]().WithTagName("custom").Name())
	assert.Equal(t, "custom", NewPlugin[levelLoad]().WithTagName("custom").Tag())
	assert.Equal(t, "progress-entity:"+levelLoadTag, NewEntityPlugin[levelLoad]().Name())
	assert.Equal(t, stepper.Label("Done["+levelLoadTag+"]"), DoneSchedule[levelLoad]())
}
