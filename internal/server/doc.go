// Package server starts and stops the display server for a claimed slot.
//
// The server is handed the claim's listening socket and the write end of a
// readiness pipe, then reports the display number it serves on that pipe:
//
//	<server> :N -listenfd 3 -displayfd 4 [server_args...]
//
// Start waits for the report for at most the configured ready timeout. A
// report that does not match the slot is fatal and is not retried.
//
// Start returns a non-nil *Server whenever the process was spawned, even
// when the readiness check fails, and the caller must Stop it:
//
//	srv, err := sup.Start(ctx, claim)
//	if srv != nil {
//	    defer srv.Stop()
//	}
//	if err != nil {
//	    return err
//	}
//
// Stop sends SIGTERM and escalates to SIGKILL after the stop grace period.
// It is safe to call more than once and after the server has exited.
package server
