package namespace

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/system"
)

const (
	// DefaultRoot is the shared location X servers use for lock markers
	// and the socket directory.
	DefaultRoot = "/tmp"

	// SocketDirName is the directory under the root holding bind points.
	SocketDirName = ".X11-unix"

	socketDirPerm = fs.ModeSticky | 0o777
)

// Slot is a display number.
type Slot int

// Display returns the value used for DISPLAY, e.g. ":3".
func (s Slot) Display() string {
	return ":" + strconv.Itoa(int(s))
}

func (s Slot) String() string {
	return s.Display()
}

// ParseSlot parses the decimal slot number a display server writes on its
// readiness channel. Surrounding whitespace, including the trailing newline,
// is ignored.
func ParseSlot(s string) (Slot, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid slot %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid slot %q: negative", s)
	}
	return Slot(n), nil
}

// Namespace derives lock-marker and bind-point paths for slots under a root
// directory. With the default root the layout matches what X servers use:
//
//	/tmp/.X<N>-lock
//	/tmp/.X11-unix/X<N>
type Namespace struct {
	root      string
	socketDir string
	fs        system.FileSystem
}

// New creates a namespace rooted at root. An empty root means DefaultRoot.
// The socket directory is resolved inside root, so a symlinked .X11-unix
// cannot point the bind points elsewhere.
func New(root string, fsys system.FileSystem) (*Namespace, error) {
	if root == "" {
		root = DefaultRoot
	}
	if fsys == nil {
		fsys = system.DefaultFS()
	}
	root = filepath.Clean(root)

	socketDir, err := securejoin.SecureJoin(root, SocketDirName)
	if err != nil {
		return nil, fmt.Errorf("resolve socket directory under %s: %w", root, err)
	}

	return &Namespace{
		root:      root,
		socketDir: socketDir,
		fs:        fsys,
	}, nil
}

// Root returns the namespace root directory.
func (n *Namespace) Root() string {
	return n.root
}

// SocketDir returns the directory holding bind points.
func (n *Namespace) SocketDir() string {
	return n.socketDir
}

// LockPath returns the lock marker path for slot.
func (n *Namespace) LockPath(slot Slot) string {
	return filepath.Join(n.root, lockName(slot))
}

// SocketPath returns the bind point path for slot.
func (n *Namespace) SocketPath(slot Slot) string {
	return filepath.Join(n.socketDir, socketName(slot))
}

// EnsureSocketDir creates the socket directory if it does not exist.
func (n *Namespace) EnsureSocketDir() error {
	if err := n.fs.MkdirAll(n.socketDir, socketDirPerm); err != nil {
		return fmt.Errorf("create socket directory %s: %w", n.socketDir, err)
	}
	return nil
}

// FS returns the file system the namespace operates on.
func (n *Namespace) FS() system.FileSystem {
	return n.fs
}

func lockName(slot Slot) string {
	return ".X" + strconv.Itoa(int(slot)) + "-lock"
}

func socketName(slot Slot) string {
	return "X" + strconv.Itoa(int(slot))
}

// parseLockName returns the slot encoded in a lock marker file name.
func parseLockName(name string) (Slot, bool) {
	if !strings.HasPrefix(name, ".X") || !strings.HasSuffix(name, "-lock") {
		return 0, false
	}
	return parseDigits(name[2 : len(name)-len("-lock")])
}

// parseSocketName returns the slot encoded in a bind point file name.
func parseSocketName(name string) (Slot, bool) {
	if !strings.HasPrefix(name, "X") {
		return 0, false
	}
	return parseDigits(name[1:])
}

func parseDigits(s string) (Slot, bool) {
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return Slot(n), true
}
