package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GoCodeAlone/stepper"
	"github.com/GoCodeAlone/stepper/feeders"
	"github.com/GoCodeAlone/stepper/logging"
	"github.com/GoCodeAlone/stepper/modules/configwatcher"
	"github.com/GoCodeAlone/stepper/modules/eventlogger"
	"github.com/GoCodeAlone/stepper/modules/progress"
	"github.com/GoCodeAlone/stepper/modules/progressmetrics"
	"github.com/GoCodeAlone/stepper/modules/statusapi"
)

// LevelTag names the demo's progress tag.
const LevelTag = "level-load"

var errWatchNeedsConfig = errors.New("--watch needs --config")

// levelLoad is the demo's progress tag.
type levelLoad struct{}

// DemoConfig is the "demo" config section.
type DemoConfig struct {
	// Required is the number of work units the simulated load needs.
	Required uint32 `yaml:"required" toml:"required" json:"required" env:"REQUIRED" default:"5000"`
}

// demoPlugin reports time-based progress and exits when the load is done.
type demoPlugin struct {
	config  *DemoConfig
	out     io.Writer
	started time.Time
}

func (p *demoPlugin) Name() string { return "demo" }

func (p *demoPlugin) Dependencies() []string {
	return []string{progress.PluginPrefix + ":" + LevelTag}
}

func (p *demoPlugin) RegisterConfig(app *stepper.App) error {
	app.RegisterConfigSection(p.Name(), stepper.NewStdConfigProvider(p.config))
	return nil
}

func (p *demoPlugin) Build(app *stepper.App) error {
	if err := app.AddSystems(stepper.Update,
		progress.TrackProgress[levelLoad]("load-level", p.report).RunIf(progress.CurrentlyTracking[levelLoad]()),
	); err != nil {
		return err
	}
	return progress.OnDone[levelLoad](app, stepper.NewSystem("level-loaded", p.finish))
}

func (p *demoPlugin) Start(context.Context) error {
	p.started = time.Now()
	return nil
}

func (p *demoPlugin) report(*stepper.Context) (progress.Progress, error) {
	elapsed := uint64(time.Since(p.started).Milliseconds())
	required := p.config.Required
	return progress.Progress{Done: uint32(min(elapsed, uint64(required))), Required: required}, nil
}

func (p *demoPlugin) finish(ctx *stepper.Context) error {
	elapsed := time.Since(p.started)
	ctx.Logger().Info("Level loaded", "elapsed", elapsed, "tick", ctx.Tick)
	fmt.Fprintf(p.out, "loaded %d units in %s (tick %d)\n", p.config.Required, elapsed.Round(time.Millisecond), ctx.Tick)
	ctx.App.Exit(0)
	return nil
}

func runDemo(cmd *cobra.Command, opts *options) error {
	if opts.watch && opts.configFile == "" {
		return errWatchNeedsConfig
	}

	zl, err := logging.New(opts.dev)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()
	logger := logging.Wrap(zl)

	var fileFeeder feeders.FileFeeder
	if opts.configFile != "" {
		if fileFeeder, err = feeders.ForFile(opts.configFile); err != nil {
			return err
		}
	}

	appOpts, err := demoOptions(cmd, opts, logger, fileFeeder)
	if err != nil {
		return err
	}
	app, err := stepper.NewApp(appOpts...)
	if err != nil {
		return err
	}

	if err := app.Run(cmd.Context()); err != nil {
		zl.Error("Demo failed", zap.Error(err))
		return err
	}
	if code := app.ExitCode(); code != 0 {
		return fmt.Errorf("exit code %d", code)
	}
	return nil
}

func demoOptions(cmd *cobra.Command, opts *options, logger stepper.Logger, fileFeeder feeders.FileFeeder) ([]stepper.Option, error) {
	var feederChain []stepper.Feeder
	if fileFeeder != nil {
		feederChain = append(feederChain, fileFeeder)
	}
	feederChain = append(feederChain, feeders.NewEnvFeeder(), &flagFeeder{cmd: cmd, opts: opts})

	plugins := []stepper.Plugin{
		progress.NewPlugin[levelLoad]().WithTagName(LevelTag),
		&demoPlugin{config: &DemoConfig{}, out: cmd.OutOrStdout()},
		eventlogger.NewPlugin(),
	}

	if opts.listen != "" {
		reg := prometheus.NewRegistry()
		if err := reg.Register(collectors.NewGoCollector()); err != nil {
			return nil, fmt.Errorf("register go collector: %w", err)
		}
		plugins = append(plugins,
			progressmetrics.NewPlugin(reg),
			statusapi.NewPlugin(statusapi.WithGatherer(reg)),
		)
	}

	if opts.watch {
		reload := configwatcher.ReloadTickInterval(func(path string) (stepper.Feeder, error) {
			return feeders.ForFile(path)
		})
		plugins = append(plugins, configwatcher.NewPlugin(reload, opts.configFile))
	}

	return []stepper.Option{
		stepper.WithLogger(logger),
		stepper.WithConfigFeeders(feederChain...),
		stepper.WithPlugins(plugins...),
	}, nil
}
