package slot

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/namespace"
)

// Claim is ownership of one slot: the lock marker and the listening bind
// point. Both exist from the moment Claim is returned until Release.
type Claim struct {
	Slot       namespace.Slot
	LockPath   string
	SocketPath string

	bind BindPoint
	ns   *namespace.Namespace

	mu       sync.Mutex
	released bool
}

// BindPoint returns the claim's listening socket.
func (c *Claim) BindPoint() BindPoint {
	return c.bind
}

// Release removes both artifacts. Any server using the bind point must have
// been stopped first. Calling Release again is a no-op, so a slot another
// allocator has since claimed is never touched. Artifacts that are already
// gone are not an error.
func (c *Claim) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return nil
	}
	c.released = true

	var errs []error
	if err := c.bind.Close(); err != nil && !errors.Is(err, fs.ErrClosed) {
		errs = append(errs, fmt.Errorf("close bind point: %w", err))
	}
	fsys := c.ns.FS()
	if err := fsys.Remove(c.SocketPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = append(errs, fmt.Errorf("remove bind point: %w", err))
	}
	if err := fsys.Remove(c.LockPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = append(errs, fmt.Errorf("remove lock marker: %w", err))
	}

	logging.Debug("released slot", "slot", c.Slot)
	return errors.Join(errs...)
}
