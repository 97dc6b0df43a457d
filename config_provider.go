package stepper

import (
	"fmt"
	"time"

	"github.com/golobby/config/v3"
	"github.com/robfig/cron/v3"
)

// Config is the app's own configuration section.
type Config struct {
	// TickInterval is the wall-clock period between ticks when the ticker
	// driver is used.
	TickInterval time.Duration `yaml:"tickInterval" toml:"tickInterval" json:"tickInterval" env:"TICK_INTERVAL" default:"16ms" desc:"Period between ticks"`

	// CronSpec switches the driver to a cron schedule ("@every 5s",
	// "*/10 * * * * *"). Seconds are optional.
	CronSpec string `yaml:"cronSpec" toml:"cronSpec" json:"cronSpec" env:"CRON_SPEC" desc:"Cron schedule driving ticks"`

	// MaxTicks stops Run after this many ticks; 0 means unbounded.
	MaxTicks uint64 `yaml:"maxTicks" toml:"maxTicks" json:"maxTicks" env:"MAX_TICKS" desc:"Stop after this many ticks"`

	// Parallel runs systems of the same set concurrently.
	Parallel bool `yaml:"parallel" toml:"parallel" json:"parallel" env:"PARALLEL" desc:"Run systems of a set concurrently"`

	// IgnoreSignals stops Run from listening for SIGINT and SIGTERM.
	IgnoreSignals bool `yaml:"ignoreSignals" toml:"ignoreSignals" json:"ignoreSignals" env:"IGNORE_SIGNALS"`

	// ShutdownTimeout bounds plugin Stop calls.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" toml:"shutdownTimeout" json:"shutdownTimeout" env:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// Validate implements ConfigValidator.
func (c *Config) Validate() error {
	if c.CronSpec != "" {
		if _, err := cronParser.Parse(c.CronSpec); err != nil {
			return fmt.Errorf("invalid cron spec %q: %w", c.CronSpec, err)
		}
		return nil
	}
	if c.TickInterval <= 0 {
		return ErrInvalidTickInterval
	}
	return nil
}

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ConfigProvider defines the interface for providing configuration objects
type ConfigProvider interface {
	// GetConfig returns the configuration object
	GetConfig() any
}

// StdConfigProvider provides a standard implementation of ConfigProvider
type StdConfigProvider struct {
	cfg any
}

// GetConfig returns the configuration object
func (s *StdConfigProvider) GetConfig() any {
	return s.cfg
}

// NewStdConfigProvider creates a new standard configuration provider
func NewStdConfigProvider(cfg any) *StdConfigProvider {
	return &StdConfigProvider{cfg: cfg}
}

// Feeder populates a configuration struct from a source.
type Feeder = config.Feeder

// ComplexFeeder can also populate a named section.
type ComplexFeeder interface {
	Feeder
	FeedKey(key string, target any) error
}

// RegisterConfigSection registers a configuration section with the app.
func (app *App) RegisterConfigSection(section string, cp ConfigProvider) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.cfgSections[section] = cp
}

// ConfigSections returns all registered configuration sections.
func (app *App) ConfigSections() map[string]ConfigProvider {
	app.mu.RLock()
	defer app.mu.RUnlock()
	sections := make(map[string]ConfigProvider, len(app.cfgSections))
	for k, v := range app.cfgSections {
		sections[k] = v
	}
	return sections
}

// GetConfigSection retrieves a configuration section.
func (app *App) GetConfigSection(section string) (ConfigProvider, error) {
	app.mu.RLock()
	defer app.mu.RUnlock()
	cp, exists := app.cfgSections[section]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrConfigSectionNotFound, section)
	}
	return cp, nil
}

// Config returns the app's configuration.
func (app *App) Config() *Config {
	return app.cfg
}

// loadConfig feeds the app config and every section, then applies defaults
// and validation.
func (app *App) loadConfig() error {
	if len(app.feeders) > 0 {
		builder := config.New()
		for _, f := range app.feeders {
			builder.AddFeeder(f)
		}
		builder.AddStruct(app.cfg)
		if err := builder.Feed(); err != nil {
			return fmt.Errorf("%w: %w", ErrConfigFeederError, err)
		}
	}
	if err := ValidateConfig(app.cfg); err != nil {
		return fmt.Errorf("app config: %w", err)
	}

	for section, provider := range app.ConfigSections() {
		if provider == nil || provider.GetConfig() == nil {
			app.logger.Warn("Skipping section with nil config", "section", section)
			continue
		}
		target := provider.GetConfig()
		for _, f := range app.feeders {
			cf, ok := f.(ComplexFeeder)
			if !ok {
				continue
			}
			if err := cf.FeedKey(section, target); err != nil {
				return fmt.Errorf("%w: section %s: %w", ErrConfigFeederError, section, err)
			}
		}
		if err := ValidateConfig(target); err != nil {
			return fmt.Errorf("config validation error for %s: %w", section, err)
		}
		app.logger.Debug("Loaded config section", "section", section)
	}
	return nil
}
