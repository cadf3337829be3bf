// Package app wires the launcher's components together from a Config.
// It allows dependency injection for testing.
package app
