package callback

import "errors"

var (
	// ErrInvalidLogs is returned when a logs record violates the schema
	// invariants checked by ValidateLogs.
	ErrInvalidLogs = errors.New("invalid logs record")
	// ErrLoggerClosed is returned when a CSV logger hook runs after the
	// underlying file has been released.
	ErrLoggerClosed = errors.New("csv logger is closed")
	// ErrLoggerNotOpen is returned when an epoch row arrives before
	// OnTrainingBegin opened the target file.
	ErrLoggerNotOpen = errors.New("csv logger is not open")
)
