package cmd

import (
	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/stepper"
	"github.com/GoCodeAlone/stepper/modules/statusapi"
)

// flagFeeder applies explicitly set flags on top of the other feeders.
type flagFeeder struct {
	cmd  *cobra.Command
	opts *options
}

func (f *flagFeeder) Feed(structure any) error {
	cfg, ok := structure.(*stepper.Config)
	if !ok {
		return nil
	}
	if f.cmd.Flags().Changed("tick") {
		cfg.TickInterval = f.opts.tick
	}
	return nil
}

func (f *flagFeeder) FeedKey(key string, target any) error {
	switch cfg := target.(type) {
	case *DemoConfig:
		if f.cmd.Flags().Changed("required") {
			cfg.Required = f.opts.required
		}
	case *statusapi.Config:
		if f.opts.listen != "" {
			cfg.Addr = f.opts.listen
		}
	}
	return nil
}
