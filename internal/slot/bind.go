package slot

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// BindPoint is a listening endpoint at a slot's socket path.
type BindPoint interface {
	// File returns the listening socket. It remains owned by the bind point;
	// callers may hand it to a child process but must not close it.
	File() *os.File
	Close() error
}

// Binder creates a listening BindPoint at path. It must fail if anything
// already exists at path.
type Binder func(path string) (BindPoint, error)

type unixBindPoint struct {
	file *os.File
}

func (b *unixBindPoint) File() *os.File { return b.file }

func (b *unixBindPoint) Close() error { return b.file.Close() }

// BindUnix binds and listens on a unix stream socket at path with a backlog
// of one; the only peer is the display server the socket is handed to.
func BindUnix(path string) (BindPoint, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind %s: %w", path, err)
	}
	if err := unix.Listen(fd, 1); err != nil {
		unix.Close(fd)
		os.Remove(path)
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	return &unixBindPoint{file: os.NewFile(uintptr(fd), path)}, nil
}
