package stepper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
)

// Run initializes and starts the app, drives ticks until Exit, MaxTicks,
// context cancellation or a termination signal, then stops every plugin.
//
// Ticks are driven by a time.Ticker at Config.TickInterval, or by a cron
// schedule when Config.CronSpec is set. The first tick runs immediately
// with the ticker driver.
func (app *App) Run(ctx context.Context) error {
	if err := app.Init(ctx); err != nil {
		return err
	}

	if err := app.Start(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !app.cfg.IgnoreSignals {
		var stop context.CancelFunc
		runCtx, stop = signal.NotifyContext(runCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	var runErr error
	if app.cfg.CronSpec != "" {
		runErr = app.runCron(runCtx)
	} else {
		runErr = app.runTicker(runCtx)
	}

	stopCtx, cancelStop := context.WithTimeout(context.WithoutCancel(ctx), app.cfg.ShutdownTimeout)
	defer cancelStop()
	stopErr := app.Stop(stopCtx)
	app.WaitObservers()

	return errors.Join(runErr, stopErr)
}

// SetTickInterval changes the period of a running ticker driver. It also
// updates the configuration used by future runs.
func (app *App) SetTickInterval(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidTickInterval
	}
	app.cfg.TickInterval = d
	select {
	case app.intervalCh <- d:
	default:
		// a change is already queued; replace it
		select {
		case <-app.intervalCh:
		default:
		}
		app.intervalCh <- d
	}
	app.logger.Info("Tick interval changed", "interval", d)
	return nil
}

func (app *App) runTicker(ctx context.Context) error {
	app.logger.Info("Tick loop started", "driver", "ticker", "interval", app.cfg.TickInterval)

	if err := app.Update(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(app.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			app.logger.Info("Tick loop cancelled", "ticks", app.Tick())
			return nil
		case <-app.exitCh:
			app.logger.Info("Exit requested", "code", app.ExitCode(), "ticks", app.Tick())
			return nil
		case d := <-app.intervalCh:
			ticker.Reset(d)
		case <-ticker.C:
			// exitCh and ticker.C can be ready together
			if app.Exiting() {
				app.logger.Info("Exit requested", "code", app.ExitCode(), "ticks", app.Tick())
				return nil
			}
			if err := app.Update(ctx); err != nil {
				return err
			}
		}
	}
}

func (app *App) runCron(ctx context.Context) error {
	app.logger.Info("Tick loop started", "driver", "cron", "spec", app.cfg.CronSpec)

	errCh := make(chan error, 1)
	c := cron.New(
		cron.WithParser(cronParser),
		cron.WithLogger(cronLogger{app.logger}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{app.logger})),
	)
	if _, err := c.AddFunc(app.cfg.CronSpec, func() {
		if app.Exiting() {
			return
		}
		if err := app.Update(ctx); err != nil {
			select {
			case errCh <- err:
			default:
			}
		}
	}); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", app.cfg.CronSpec, err)
	}

	c.Start()
	defer func() { <-c.Stop().Done() }()

	select {
	case <-ctx.Done():
		app.logger.Info("Tick loop cancelled", "ticks", app.Tick())
		return nil
	case <-app.exitCh:
		app.logger.Info("Exit requested", "code", app.ExitCode(), "ticks", app.Tick())
		return nil
	case err := <-errCh:
		return err
	}
}

// cronLogger adapts Logger to cron.Logger.
type cronLogger struct {
	logger Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
