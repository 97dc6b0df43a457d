package statusapi

import "errors"

var (
	ErrInvalidAddr       = errors.New("invalid listen address")
	ErrNegativeTimeout   = errors.New("timeouts must not be negative")
	ErrServerNotStarted  = errors.New("status server not started")
	ErrServerNotBuilt    = errors.New("status server not built")
	ErrServerAlreadyRuns = errors.New("status server already running")
)
