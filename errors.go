package stepper

import (
	"errors"
)

// Application errors
var (
	// Application construction errors
	ErrLoggerNotSet        = errors.New("logger not set in application builder")
	ErrApplicationNil      = errors.New("application is nil")
	ErrAppNotInitialized   = errors.New("application not initialized")
	ErrAppAlreadyInit      = errors.New("application already initialized")
	ErrAppAlreadyStarted   = errors.New("application already started")
	ErrAppNotStarted       = errors.New("application not started")
	ErrInvalidTickInterval = errors.New("tick interval must be positive")

	// Configuration errors
	ErrConfigSectionNotFound      = errors.New("config section not found")
	ErrConfigNil                  = errors.New("config is nil")
	ErrConfigNotPointer           = errors.New("config must be a pointer")
	ErrConfigNotStruct            = errors.New("config must be a struct")
	ErrConfigRequiredFieldMissing = errors.New("required field is missing")
	ErrConfigValidationFailed     = errors.New("config validation failed")
	ErrConfigFeederError          = errors.New("config feeder error")
	ErrUnsupportedTypeForDefault  = errors.New("unsupported type for default value")
	ErrUnsupportedFormatType      = errors.New("unsupported format type")

	// Plugin errors
	ErrPluginNil                = errors.New("plugin is nil")
	ErrPluginAlreadyRegistered  = errors.New("plugin already registered")
	ErrPluginDependencyMissing  = errors.New("plugin depends on non-existent plugin")
	ErrCircularDependency       = errors.New("circular dependency detected")
	ErrPluginsAlreadyBuilt      = errors.New("plugins already built")
	ErrSystemNil                = errors.New("system function is nil")
	ErrCircularSetOrder         = errors.New("circular system set ordering")
	ErrEntityNotFound           = errors.New("entity not found")

	// Observer errors
	ErrNoSubjectForEventEmission = errors.New("no subject available for event emission")
)
