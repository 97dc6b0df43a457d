package stepper

// Logger defines the interface for application logging.
// The host and its plugins log with key-value pairs so that any structured
// backend (slog, zap, logrus) can sit behind it.
//
// The Logger interface uses variadic arguments in key-value pairs:
//
//	logger.Info("message", "key1", "value1", "key2", "value2")
//
// The logging package in this repository adapts a zap.Logger.
type Logger interface {
	// Info logs an informational message with optional key-value pairs.
	// Used for plugin registration, startup and completions.
	Info(msg string, args ...any)

	// Error logs an error message with optional key-value pairs.
	Error(msg string, args ...any)

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, args ...any)

	// Debug logs a debug message with optional key-value pairs.
	// Per-tick diagnostics go here; it is expected to be disabled in production.
	Debug(msg string, args ...any)
}

// NopLogger discards everything. Useful in benchmarks and examples.
type NopLogger struct{}

func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Debug(string, ...any) {}
