package statusapi

import (
	"fmt"
	"net"
	"time"
)

// Config is the "statusapi" config section.
type Config struct {
	// Addr is the listen address. Port 0 picks a free port.
	Addr string `yaml:"addr" toml:"addr" json:"addr" env:"ADDR" default:":8080"`

	ReadTimeout  time.Duration `yaml:"readTimeout" toml:"readTimeout" json:"readTimeout" env:"READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `yaml:"writeTimeout" toml:"writeTimeout" json:"writeTimeout" env:"WRITE_TIMEOUT" default:"10s"`

	// ShutdownTimeout bounds the graceful shutdown in Stop.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" toml:"shutdownTimeout" json:"shutdownTimeout" env:"SHUTDOWN_TIMEOUT" default:"5s"`

	// DisableMetrics removes the /metrics route.
	DisableMetrics bool `yaml:"disableMetrics" toml:"disableMetrics" json:"disableMetrics" env:"DISABLE_METRICS"`
}

// Validate checks the listen address and timeouts.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidAddr, c.Addr, err)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.ShutdownTimeout < 0 {
		return ErrNegativeTimeout
	}
	return nil
}
