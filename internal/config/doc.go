// Package config provides configuration types and loading for forage-xrun.
//
// # Sources
//
// Settings are layered, later sources winning:
//
//   - built-in defaults (Default)
//   - the config file: --config, else $XDG_CONFIG_HOME/forage-xrun/config.toml if present
//   - FORAGE_XRUN_* environment variables
//   - command-line flags (applied by the cmd package)
//
// Files ending in .yaml or .yml are parsed as YAML, anything else as TOML.
// Unknown keys are rejected in both formats.
//
// # Example
//
//	namespace_root = "/tmp"
//	max_slots      = 1024
//	ready_timeout  = "5s"
//	stop_grace     = "10s"
//	server         = "Xwayland"
//	server_args    = "-noreset -core"
//	display_env    = "DISPLAY"
//	unset_env      = ["WAYLAND_DISPLAY", "WAYLAND_SOCKET"]
//	aux_socket_env = "WAYLAND_SOCKET"
//	setsid         = false
//	probe          = false
//
// # Environment Overrides
//
//	FORAGE_XRUN_ROOT         namespace_root
//	FORAGE_XRUN_SERVER       server
//	FORAGE_XRUN_SERVER_ARGS  server_args
//	FORAGE_XRUN_MAX_SLOTS    max_slots
//	FORAGE_XRUN_TIMEOUT      ready_timeout
//	FORAGE_XRUN_SETSID       setsid
//	FORAGE_XRUN_PROBE        probe
//
// # Validation
//
// Load validates the merged result; callers applying flags afterwards should
// call Validate again.
package config
