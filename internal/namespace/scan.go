package namespace

import (
	"errors"
	"io/fs"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/system"
)

// Overridable for tests.
var (
	processAliveFn = system.ProcessAlive
	socketLiveFn   = socketLive
)

// State summarizes what the artifacts of one slot say about its owner.
type State string

const (
	// StateActive means the lock owner is alive.
	StateActive State = "active"
	// StateStale means the lock marker names a process that no longer exists.
	StateStale State = "stale"
	// StateOrphanSocket means a bind point exists without a lock marker.
	StateOrphanSocket State = "orphan-socket"
	// StateOrphanLock means a live owner holds the lock but no bind point exists.
	StateOrphanLock State = "orphan-lock"
	// StateUnknown means the lock marker names no owner. An allocator may be
	// between creating the marker and writing its PID, so it is never cleaned.
	StateUnknown State = "unknown"
)

// Entry describes one slot found in the namespace.
type Entry struct {
	Slot       Slot   `json:"slot"`
	Display    string `json:"display"`
	LockPath   string `json:"lock_path,omitempty"`
	SocketPath string `json:"socket_path,omitempty"`
	HasLock    bool   `json:"has_lock"`
	HasSocket  bool   `json:"has_socket"`
	OwnerPID   int    `json:"owner_pid,omitempty"`
	OwnerAlive bool   `json:"owner_alive"`
	State      State  `json:"state"`
}

// Scan lists every slot that has a lock marker or a bind point, ordered by
// slot number. Entries of the socket directory that are not sockets are
// ignored. A missing socket directory is not an error.
func (n *Namespace) Scan() ([]Entry, error) {
	bySlot := make(map[Slot]*Entry)
	get := func(slot Slot) *Entry {
		e, ok := bySlot[slot]
		if !ok {
			e = &Entry{Slot: slot, Display: slot.Display()}
			bySlot[slot] = e
		}
		return e
	}

	rootEntries, err := n.fs.ReadDir(n.root)
	if err != nil {
		return nil, err
	}
	for _, de := range rootEntries {
		if de.IsDir() {
			continue
		}
		slot, ok := parseLockName(de.Name())
		if !ok {
			continue
		}
		e := get(slot)
		e.HasLock = true
		e.LockPath = n.LockPath(slot)
	}

	socketEntries, err := n.fs.ReadDir(n.socketDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	for _, de := range socketEntries {
		slot, ok := parseSocketName(de.Name())
		if !ok {
			continue
		}
		path := n.SocketPath(slot)
		if info, err := n.fs.Stat(path); err != nil || info.Mode().Type() != fs.ModeSocket {
			logging.Debug("ignoring non-socket in socket directory", "path", path)
			continue
		}
		e := get(slot)
		e.HasSocket = true
		e.SocketPath = path
	}

	entries := make([]Entry, 0, len(bySlot))
	for _, e := range bySlot {
		if e.HasLock {
			e.OwnerPID = n.readOwner(e.LockPath)
			e.OwnerAlive = e.OwnerPID > 0 && processAliveFn(e.OwnerPID)
		}
		e.State = classify(e)
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Slot < entries[j].Slot })
	return entries, nil
}

// Clean removes the artifacts of stale slots and orphaned bind points that
// nothing is listening on. It returns the slots it cleaned.
func (n *Namespace) Clean(entries []Entry) []Slot {
	var cleaned []Slot
	for _, e := range entries {
		switch e.State {
		case StateStale, StateOrphanSocket:
		default:
			continue
		}
		if e.HasSocket && socketLiveFn(e.SocketPath) {
			logging.Debug("bind point still accepting connections", "slot", e.Slot, "path", e.SocketPath)
			continue
		}
		ok := true
		if e.HasSocket {
			if err := n.fs.Remove(e.SocketPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
				logging.Warn("failed to remove bind point", "path", e.SocketPath, "error", err)
				ok = false
			}
		}
		if e.HasLock {
			if err := n.fs.Remove(e.LockPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
				logging.Warn("failed to remove lock marker", "path", e.LockPath, "error", err)
				ok = false
			}
		}
		if ok {
			cleaned = append(cleaned, e.Slot)
		}
	}
	return cleaned
}

// readOwner returns the PID recorded in a lock marker, or 0 if it cannot
// be read or does not hold a positive PID.
func (n *Namespace) readOwner(path string) int {
	data, err := n.fs.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}

func classify(e *Entry) State {
	switch {
	case !e.HasLock:
		return StateOrphanSocket
	case e.OwnerPID == 0:
		return StateUnknown
	case !e.OwnerAlive:
		return StateStale
	case !e.HasSocket:
		return StateOrphanLock
	default:
		return StateActive
	}
}

func socketLive(path string) bool {
	conn, err := net.DialTimeout("unix", path, 200*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
