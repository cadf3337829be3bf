// Package logging provides logging utilities for forage-xrun.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings.
// Without --verbose only warnings and errors are emitted:
//
//	logging.Debug("claimed slot", "slot", slot, "lock", lockPath)
//	logging.Warn("failed to remove lock marker", "path", path, "error", err)
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("No display slots in use under %s", root)
//	logging.UserSuccess("Removed stale artifacts for %s", slot.Display())
//	logging.UserWarning("%s does not name an open descriptor", name)
//	logging.UserError("could not start display session: %v", err)
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
//
// # Status Indicators
//
// User functions prepend status indicators:
//   - ℹ (info)
//   - ✓ (success)
//   - ⚠ (warning)
//   - ✗ (error)
package logging
