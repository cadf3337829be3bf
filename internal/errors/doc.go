// Package errors provides typed errors with exit codes for forage-xrun.
//
// # Error Types
//
// XrunError is the base error type that wraps an error with an exit code:
//
//	type XrunError struct {
//	    Code    int    // Exit code
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// # Exit Codes
//
// forage-xrun passes the target command's own exit status through, so its own
// failures use codes at the top of the range where they are unlikely to be
// confused with the command's:
//
//	ExitUsage                = 2   // No command given, bad flags
//	ExitConfigError          = 120 // Configuration error
//	ExitSlotsExhausted       = 121 // No free display slot
//	ExitServerSpawn          = 122 // Display server could not be executed
//	ExitServerTimeout        = 123 // Display server never reported readiness
//	ExitServerNotReady       = 124 // Readiness report missing or wrong
//	ExitSessionFailed        = 125 // Other session setup failure
//	ExitCommandNotExecutable = 126 // Target command is not executable
//	ExitCommandNotFound      = 127 // Target command does not exist
//
// Startup reports whether an error means "could not establish a session" as
// opposed to "the command you ran failed".
//
// # Extracting Exit Codes
//
// Use GetExitCode to extract the exit code from an error chain:
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
