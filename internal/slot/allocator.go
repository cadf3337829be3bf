package slot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/namespace"
)

// DefaultMaxSlots bounds the slot scan. The number has no significance
// beyond being large enough.
const DefaultMaxSlots = 1024

const lockPerm = 0o444

// ErrExhausted is returned by Claim when no candidate slot could be taken.
var ErrExhausted = errors.New("no free slot")

// errRaceLost means another allocator holds the candidate slot.
var errRaceLost = errors.New("slot taken")

// Allocator claims free slots in a namespace.
type Allocator struct {
	ns       *namespace.Namespace
	maxSlots int
	bind     Binder
	pid      int
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithMaxSlots sets how many slots, starting at 0, are tried.
func WithMaxSlots(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxSlots = n
		}
	}
}

// WithBinder replaces the function used to create bind points.
func WithBinder(b Binder) Option {
	return func(a *Allocator) {
		if b != nil {
			a.bind = b
		}
	}
}

// WithPID sets the PID written into lock markers.
func WithPID(pid int) Option {
	return func(a *Allocator) {
		a.pid = pid
	}
}

// New creates an Allocator for ns.
func New(ns *namespace.Namespace, opts ...Option) *Allocator {
	a := &Allocator{
		ns:       ns,
		maxSlots: DefaultMaxSlots,
		bind:     BindUnix,
		pid:      os.Getpid(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MaxSlots returns the scan bound.
func (a *Allocator) MaxSlots() int {
	return a.maxSlots
}

// Claim takes the lowest free slot. A slot is free when its lock marker can
// be created exclusively and its bind point can then be bound. Losing either
// race moves on to the next slot; a lock marker created for a slot whose bind
// point could not be bound is removed before moving on.
func (a *Allocator) Claim(ctx context.Context) (*Claim, error) {
	if err := a.ns.EnsureSocketDir(); err != nil {
		return nil, err
	}

	for n := 0; n < a.maxSlots; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		claim, err := a.tryClaim(namespace.Slot(n))
		if err == nil {
			logging.Debug("claimed slot", "slot", claim.Slot, "lock", claim.LockPath, "socket", claim.SocketPath)
			return claim, nil
		}
		if !errors.Is(err, errRaceLost) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: slots 0-%d under %s are all taken", ErrExhausted, a.maxSlots-1, a.ns.Root())
}

func (a *Allocator) tryClaim(slot namespace.Slot) (*Claim, error) {
	fsys := a.ns.FS()
	lockPath := a.ns.LockPath(slot)
	socketPath := a.ns.SocketPath(slot)

	if err := fsys.CreateExclusive(lockPath, []byte(fmt.Sprintf("%10d\n", a.pid)), lockPerm); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, errRaceLost
		}
		return nil, fmt.Errorf("create lock marker %s: %w", lockPath, err)
	}

	bp, err := a.bind(socketPath)
	if err != nil {
		logging.Debug("bind point unavailable", "slot", slot, "path", socketPath, "error", err)
		if rerr := fsys.Remove(lockPath); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			logging.Warn("failed to roll back lock marker", "path", lockPath, "error", rerr)
		}
		return nil, errRaceLost
	}

	return &Claim{
		Slot:       slot,
		LockPath:   lockPath,
		SocketPath: socketPath,
		bind:       bp,
		ns:         a.ns,
	}, nil
}
