// Package session runs a command against a freshly started display.
//
// Runner.Run claims a slot, starts the display server on it, runs the
// command with DISPLAY pointing at the new server and finally stops the
// server and releases the slot. Teardown runs on every path once the
// corresponding resource exists, in reverse order of acquisition:
//
//	claim slot -> start server -> [probe] -> run command
//	                                              |
//	release slot <- stop server <-----------------+
//
// The command's exit status is returned unchanged. A command killed by a
// signal yields 128+signo, as a shell reports it. Failures to establish the
// session are returned as errors whose exit codes lie outside the range
// commands normally use (see internal/errors).
//
// While the command runs, SIGTERM and SIGHUP are forwarded to it. SIGINT
// and SIGQUIT are not forwarded, because the terminal already delivers them
// to the whole foreground process group, but they no longer terminate the
// launcher, so cleanup still happens after the command exits.
package session
