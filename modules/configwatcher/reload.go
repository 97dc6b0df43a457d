package configwatcher

import (
	"context"
	"fmt"

	"github.com/GoCodeAlone/stepper"
)

// ReloadTickInterval returns a ChangeFunc that reads the app config from
// the changed file with the feeder from newFeeder and applies a new tick
// interval to the running app. Other app settings need a restart.
func ReloadTickInterval(newFeeder func(path string) (stepper.Feeder, error)) ChangeFunc {
	return func(_ context.Context, app *stepper.App, path string) error {
		feeder, err := newFeeder(path)
		if err != nil {
			return err
		}
		var cfg stepper.Config
		if err := feeder.Feed(&cfg); err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if cfg.TickInterval == 0 || cfg.TickInterval == app.Config().TickInterval {
			return nil
		}
		return app.SetTickInterval(cfg.TickInterval)
	}
}
