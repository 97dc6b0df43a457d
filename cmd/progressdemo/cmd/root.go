// Package cmd holds the progressdemo commands.
package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

type options struct {
	configFile string
	tick       time.Duration
	required   uint32
	dev        bool
	listen     string
	watch      bool
}

// NewRootCommand creates the progressdemo command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{})
}

func newRootCommand(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "progressdemo",
		Short: "Track a simulated level load until it completes",
		Long: `progressdemo runs a tick loop with one progress tag. Every tick a
reporter reports min(elapsed milliseconds, required) of the required work;
when the work is done the app logs the finish time and exits.

Settings come from the config file, then STEPPER_* environment variables,
then flags.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd, opts)
		},
	}

	flags := root.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file (.yaml, .yml, .json or .toml)")
	flags.DurationVar(&opts.tick, "tick", 0, "tick interval (default 16ms)")
	flags.Uint32Var(&opts.required, "required", 0, "units of work to load (default 5000)")
	flags.BoolVar(&opts.dev, "dev", false, "human-readable development logging")
	flags.StringVar(&opts.listen, "listen", "", "serve the status API and metrics on this address, e.g. :8080")
	flags.BoolVar(&opts.watch, "watch", false, "apply tick interval changes from the config file while running")

	root.AddCommand(newSampleConfigCommand())
	return root
}
