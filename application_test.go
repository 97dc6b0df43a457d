package stepper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppRequiresLogger(t *testing.T) {
	_, err := NewApp()
	assert.ErrorIs(t, err, ErrLoggerNotSet)
}

func TestNewAppRejectsNilConfig(t *testing.T) {
	_, err := NewApp(WithLogger(NopLogger{}), WithConfig(nil))
	assert.ErrorIs(t, err, ErrConfigNil)
}

func TestAppLifecycleOrder(t *testing.T) {
	j := &journal{}
	// registered in reverse dependency order
	app, _ := newTestApp(t, WithPlugins(
		&testPlugin{name: "c", deps: []string{"b"}, journal: j},
		&testPlugin{name: "b", deps: []string{"a"}, journal: j},
		&testPlugin{name: "a", journal: j},
	))

	ctx := context.Background()
	require.NoError(t, app.Init(ctx))
	require.NoError(t, app.Start(ctx))
	require.NoError(t, app.Stop(ctx))

	assert.Equal(t, []string{
		"build:a", "build:b", "build:c",
		"start:a", "start:b", "start:c",
		"stop:c", "stop:b", "stop:a",
	}, j.list())
}

func TestAppIndependentPluginsKeepRegistrationOrder(t *testing.T) {
	j := &journal{}
	initTestApp(t, WithPlugins(
		&testPlugin{name: "zeta", journal: j},
		&testPlugin{name: "alpha", journal: j},
		&testPlugin{name: "mid", journal: j},
	))
	assert.Equal(t, []string{"build:zeta", "build:alpha", "build:mid"}, j.list())
}

func TestAppDependencyErrors(t *testing.T) {
	tests := []struct {
		name    string
		plugins []Plugin
		wantErr error
	}{
		{
			name: "missing dependency",
			plugins: []Plugin{
				&testPlugin{name: "a", deps: []string{"ghost"}, journal: &journal{}},
			},
			wantErr: ErrPluginDependencyMissing,
		},
		{
			name: "cycle",
			plugins: []Plugin{
				&testPlugin{name: "a", deps: []string{"b"}, journal: &journal{}},
				&testPlugin{name: "b", deps: []string{"a"}, journal: &journal{}},
			},
			wantErr: ErrCircularDependency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestApp(t, WithPlugins(tt.plugins...))
			err := app.Init(context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAppAddPlugins(t *testing.T) {
	t.Run("duplicate name", func(t *testing.T) {
		app, _ := newTestApp(t)
		require.NoError(t, app.AddPlugins(&testPlugin{name: "a", journal: &journal{}}))
		err := app.AddPlugins(&testPlugin{name: "a", journal: &journal{}})
		assert.ErrorIs(t, err, ErrPluginAlreadyRegistered)
	})

	t.Run("nil plugin", func(t *testing.T) {
		app, _ := newTestApp(t)
		assert.ErrorIs(t, app.AddPlugins(nil), ErrPluginNil)
	})

	t.Run("after init", func(t *testing.T) {
		app := initTestApp(t)
		err := app.AddPlugins(&testPlugin{name: "late", journal: &journal{}})
		assert.ErrorIs(t, err, ErrPluginsAlreadyBuilt)
	})

	t.Run("from build", func(t *testing.T) {
		var buildErr error
		app, _ := newTestApp(t, WithPlugins(&testPlugin{
			name:    "nested",
			journal: &journal{},
			build: func(app *App) error {
				buildErr = app.AddPlugins(&testPlugin{name: "inner", journal: &journal{}})
				return nil
			},
		}))
		require.NoError(t, app.Init(context.Background()))
		assert.ErrorIs(t, buildErr, ErrPluginsAlreadyBuilt)
	})

	t.Run("lookup", func(t *testing.T) {
		p := &testPlugin{name: "found", journal: &journal{}}
		app, _ := newTestApp(t, WithPlugins(p))
		got, ok := app.Plugin("found")
		require.True(t, ok)
		assert.Same(t, p, got)
		_, ok = app.Plugin("missing")
		assert.False(t, ok)
	})
}

func TestAppLifecycleGuards(t *testing.T) {
	ctx := context.Background()
	app, _ := newTestApp(t)

	assert.ErrorIs(t, app.Start(ctx), ErrAppNotInitialized)
	assert.ErrorIs(t, app.Update(ctx), ErrAppNotInitialized)
	assert.ErrorIs(t, app.Stop(ctx), ErrAppNotStarted)

	require.NoError(t, app.Init(ctx))
	assert.ErrorIs(t, app.Init(ctx), ErrAppAlreadyInit)

	require.NoError(t, app.Start(ctx))
	assert.ErrorIs(t, app.Start(ctx), ErrAppAlreadyStarted)
	require.NoError(t, app.Stop(ctx))
}

func TestAppBuildFailure(t *testing.T) {
	errBuild := errors.New("build failed")
	app, _ := newTestApp(t, WithPlugins(&testPlugin{
		name:    "broken",
		journal: &journal{},
		build:   func(*App) error { return errBuild },
	}))

	err := app.Init(context.Background())
	assert.ErrorIs(t, err, errBuild)
	assert.Contains(t, err.Error(), "broken")
}

func TestAppStopJoinsErrors(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	j := &journal{}
	app := initTestApp(t, WithPlugins(
		&testPlugin{name: "a", journal: j, stopErr: errA},
		&testPlugin{name: "b", journal: j, stopErr: errB},
	))

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	err := app.Stop(ctx)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Contains(t, j.list(), "stop:a", "every plugin is asked to stop")
}

func TestAppMaxTicksRequestsExit(t *testing.T) {
	app := initTestApp(t, WithConfig(&Config{MaxTicks: 3}))
	ctx := context.Background()

	for range 2 {
		require.NoError(t, app.Update(ctx))
		assert.False(t, app.Exiting())
	}
	require.NoError(t, app.Update(ctx))
	assert.True(t, app.Exiting())
	assert.Equal(t, 0, app.ExitCode())
	assert.Equal(t, uint64(3), app.Tick())
}

func TestAppExitKeepsFirstCode(t *testing.T) {
	app, _ := newTestApp(t)
	app.Exit(3)
	app.Exit(7)
	assert.True(t, app.Exiting())
	assert.Equal(t, 3, app.ExitCode())
}
