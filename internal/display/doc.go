// Package display checks that a started server accepts X11 clients.
//
// Probe dials the slot's bind point directly, completes the connection
// setup with xgb and makes one round trip. It is used when the probe option
// is enabled, and by the --list --probe report.
package display
