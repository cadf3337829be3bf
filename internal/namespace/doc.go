// Package namespace models the shared display-slot address space.
//
// A slot N is taken when two artifacts exist under the namespace root:
//
//	<root>/.X<N>-lock       lock marker, created exclusively, holds the owner PID
//	<root>/.X11-unix/X<N>   bind point, a listening unix socket
//
// The default root is /tmp, which is the location X servers and clients
// agree on. Tests use a private temporary root instead.
//
// # Path Derivation
//
// LockPath and SocketPath are pure functions of the slot number. The socket
// directory itself is resolved with filepath-securejoin so that it cannot
// escape the root; leaf names are never resolved, which keeps exclusive
// create and bind semantics intact for pre-existing symlinks.
//
// # Scanning
//
// Scan merges lock markers and bind points by slot and classifies each:
//
//	active         lock owner alive, bind point present
//	stale          lock owner no longer exists
//	orphan-socket  bind point without a lock marker
//	orphan-lock    live owner but no bind point
//	unknown        lock marker without a readable PID
//
// Only sockets count as bind points. Clean removes stale and orphaned
// artifacts, skipping bind points that still accept connections. Slots with
// an unknown owner are left alone since their allocator may still be writing
// the marker.
package namespace
