package progress

import (
	"errors"
)

// Progress tracking errors
var (
	ErrTagAlreadyRegistered = errors.New("progress tag already registered")
	ErrTagNotRegistered     = errors.New("progress tag not registered")
	ErrTagNotFound          = errors.New("progress tag not found")
	ErrEntityNotTracked     = errors.New("entity has no progress tracker")
)
