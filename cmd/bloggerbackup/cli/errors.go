package cli

import (
	"errors"
	"fmt"
)

// UsageHint is appended to usage and validation messages.
const UsageHint = " Usage: bloggerbackup --help"

// Sentinel errors for validation failures.
var (
	ErrInvalidURL      = errors.New("incorrect URL")
	ErrInvalidDate     = errors.New("incorrect date format, should be yyyy-MM-ddTHH:mm:ss+HH:mm")
	ErrBackupDirCreate = errors.New("directory cannot be created")
	ErrBackupDirIsFile = errors.New("directory is a file")
)

// ExitError carries the exit code and the message to print for a failed run.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// UsageError reports a missing flag, a flag without a value, or a flag
// value of the wrong type.
type UsageError struct {
	Flag         string
	MissingValue bool
	Err          error
}

func (e *UsageError) Error() string {
	switch {
	case e.Err != nil:
		return e.Err.Error()
	case e.MissingValue:
		return "No value found for: " + e.Flag
	default:
		return "No argument: " + e.Flag + " found."
	}
}

func (e *UsageError) Unwrap() error { return e.Err }

// ValidationError wraps a sentinel with the flag and value that failed.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Field, e.Wrapped, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
