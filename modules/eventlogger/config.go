package eventlogger

import (
	"fmt"
	"strings"
)

// Config is the "eventlogger" config section.
type Config struct {
	// LogLevel is the minimum level logged: DEBUG, INFO, WARN or ERROR.
	LogLevel string `yaml:"logLevel" toml:"logLevel" json:"logLevel" env:"LOG_LEVEL" default:"INFO" desc:"Minimum log level for events"`

	// EventTypeFilters limits logging to these event types. Empty logs all.
	EventTypeFilters []string `yaml:"eventTypeFilters" toml:"eventTypeFilters" json:"eventTypeFilters" desc:"Event types to log (empty = all events)"`

	// IncludeData adds the event payload to each entry.
	IncludeData bool `yaml:"includeData" toml:"includeData" json:"includeData" env:"INCLUDE_DATA" desc:"Include event data in logs"`
}

// Validate normalizes and checks LogLevel.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToUpper(c.LogLevel)
	if _, ok := levels[c.LogLevel]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidLogLevel, c.LogLevel)
	}
	return nil
}
