package cmd

import (
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/namespace"
)

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logError   = logging.UserError
)

// reportError tells the user why nothing ran, or why the command could not
// be started. Startup failures are worded so they cannot be mistaken for a
// failure of the command itself.
func reportError(err error) {
	switch {
	case errors.IsStartup(err):
		logError("could not start display session: %v", err)
	case errors.GetExitCode(err) == errors.ExitUsage:
		logError("%v", err)
		logInfo("Run 'forage-xrun --help' for usage.")
	default:
		logError("%v", err)
	}
}

func formatState(state namespace.State) string {
	switch state {
	case namespace.StateActive:
		return "● active"
	case namespace.StateStale:
		return "⚠ stale"
	case namespace.StateOrphanSocket:
		return "○ orphan-socket"
	case namespace.StateOrphanLock:
		return "○ orphan-lock"
	case namespace.StateUnknown:
		return "? unknown"
	default:
		return string(state)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
