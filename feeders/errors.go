package feeders

import (
	"errors"
)

// Feeder errors
var (
	ErrEnvInvalidStructure = errors.New("env: invalid structure")
	ErrEnvEmptyPrefix      = errors.New("env: prefix cannot be empty")
	ErrEnvFieldCannotBeSet = errors.New("env: field cannot be set")
	ErrFileRead            = errors.New("failed to read config file")
	ErrValueConversion     = errors.New("failed to convert section value")
	ErrUnsupportedFileType = errors.New("unsupported config file type")
)
