package errors

import (
	"errors"
	"fmt"
)

// Exit codes for forage-xrun.
//
// Codes 1-119 are left to the target command; when the command ran, its own
// status is returned unchanged.
const (
	ExitSuccess              = 0
	ExitGeneralError         = 1
	ExitUsage                = 2
	ExitConfigError          = 120
	ExitSlotsExhausted       = 121
	ExitServerSpawn          = 122
	ExitServerTimeout        = 123
	ExitServerNotReady       = 124
	ExitSessionFailed        = 125
	ExitCommandNotExecutable = 126
	ExitCommandNotFound      = 127
)

// XrunError is the base error type for forage-xrun
type XrunError struct {
	Code    int
	Message string
	Cause   error
}

func (e *XrunError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *XrunError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *XrunError) ExitCode() int {
	return e.Code
}

// Startup reports whether the error means no display session could be
// established, as opposed to a failure of the command itself.
func (e *XrunError) Startup() bool {
	switch e.Code {
	case ExitSlotsExhausted, ExitServerSpawn, ExitServerTimeout, ExitServerNotReady, ExitSessionFailed:
		return true
	}
	return false
}

// New creates a new XrunError
func New(code int, message string) *XrunError {
	return &XrunError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an XrunError
func Wrap(code int, message string, cause error) *XrunError {
	return &XrunError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// UsageError returns an error for invalid invocations
func UsageError(message string) *XrunError {
	return New(ExitUsage, message)
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *XrunError {
	return Wrap(ExitConfigError, message, cause)
}

// SlotsExhausted returns an error when every candidate slot is taken
func SlotsExhausted(cause error) *XrunError {
	return Wrap(ExitSlotsExhausted, "no free display slot", cause)
}

// ServerSpawnFailed returns an error when the display server could not be executed
func ServerSpawnFailed(server string, cause error) *XrunError {
	return Wrap(ExitServerSpawn, fmt.Sprintf("failed to start %s", server), cause)
}

// ServerTimeout returns an error when the server did not report readiness in time
func ServerTimeout(slot int, cause error) *XrunError {
	return Wrap(ExitServerTimeout, fmt.Sprintf("display server for :%d did not become ready", slot), cause)
}

// ServerNotReady returns an error when the readiness report was missing or wrong
func ServerNotReady(slot int, cause error) *XrunError {
	return Wrap(ExitServerNotReady, fmt.Sprintf("display server for :%d failed readiness check", slot), cause)
}

// SessionFailed returns an error for any other failure to set up the session
func SessionFailed(message string, cause error) *XrunError {
	return Wrap(ExitSessionFailed, message, cause)
}

// CommandNotFound returns an error when the target command does not exist
func CommandNotFound(name string, cause error) *XrunError {
	return Wrap(ExitCommandNotFound, fmt.Sprintf("command not found: %s", name), cause)
}

// CommandNotExecutable returns an error when the target command cannot be run
func CommandNotExecutable(name string, cause error) *XrunError {
	return Wrap(ExitCommandNotExecutable, fmt.Sprintf("cannot execute %s", name), cause)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var xrunErr *XrunError
	if errors.As(err, &xrunErr) {
		return xrunErr.ExitCode()
	}
	return ExitGeneralError
}

// IsStartup reports whether err is a session startup failure
func IsStartup(err error) bool {
	var xrunErr *XrunError
	if errors.As(err, &xrunErr) {
		return xrunErr.Startup()
	}
	return false
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
