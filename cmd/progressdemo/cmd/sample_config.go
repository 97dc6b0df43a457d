package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/stepper"
	"github.com/GoCodeAlone/stepper/modules/eventlogger"
	"github.com/GoCodeAlone/stepper/modules/progressmetrics"
	"github.com/GoCodeAlone/stepper/modules/statusapi"
)

// sampleFile is the layout of a complete progressdemo config file.
type sampleFile struct {
	stepper.Config `yaml:",inline"`

	Demo            DemoConfig             `yaml:"demo" toml:"demo"`
	StatusAPI       statusapi.Config       `yaml:"statusapi" toml:"statusapi"`
	ProgressMetrics progressmetrics.Config `yaml:"progressmetrics" toml:"progressmetrics"`
	EventLogger     eventlogger.Config     `yaml:"eventlogger" toml:"eventlogger"`
}

func newSampleConfigCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "sample-config",
		Short: "Print a config file with every default filled in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := stepper.GenerateSampleConfig(&sampleFile{}, format)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format: yaml or toml")
	return cmd
}
