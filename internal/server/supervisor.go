package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/envutil"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/namespace"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/slot"
)

// Descriptor numbers as seen by the server process. exec.Cmd places
// ExtraFiles[i] at 3+i.
const (
	listenFD = 3
	readyFD  = 4
	auxFD    = 5
)

// Supervisor starts display servers.
type Supervisor struct {
	server       string
	args         []string
	readyTimeout time.Duration
	stopGrace    time.Duration
	setsid       bool
	auxEnv       string

	// Output receives the server's stdout and stderr.
	Output io.Writer

	// LookupEnv and Environ read the launcher's environment. Tests replace them.
	LookupEnv func(string) (string, bool)
	Environ   func() []string
}

// New creates a Supervisor from cfg.
func New(cfg *config.Config) (*Supervisor, error) {
	args, err := cfg.ServerArgv()
	if err != nil {
		return nil, errors.ConfigError("invalid server arguments", err)
	}
	return &Supervisor{
		server:       cfg.Server,
		args:         args,
		readyTimeout: cfg.ReadyTimeout.Duration,
		stopGrace:    cfg.StopGrace.Duration,
		setsid:       cfg.Setsid,
		auxEnv:       cfg.AuxSocketEnv,
		Output:       os.Stderr,
		LookupEnv:    os.LookupEnv,
		Environ:      os.Environ,
	}, nil
}

// Argv returns the full server command line for slot.
func (s *Supervisor) Argv(n namespace.Slot) []string {
	argv := []string{
		s.server,
		n.Display(),
		"-listenfd", strconv.Itoa(listenFD),
		"-displayfd", strconv.Itoa(readyFD),
	}
	return append(argv, s.args...)
}

// Start spawns the server on the claim's bind point and waits for it to
// report readiness.
func (s *Supervisor) Start(ctx context.Context, claim *slot.Claim) (*Server, error) {
	log := logging.With("slot", claim.Slot)

	readR, readW, err := os.Pipe()
	if err != nil {
		return nil, errors.SessionFailed("failed to create readiness pipe", err)
	}

	argv := s.Argv(claim.Slot)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = s.Output
	cmd.Stderr = s.Output
	cmd.ExtraFiles = []*os.File{claim.BindPoint().File(), readW}
	cmd.Env = s.Environ()
	if s.setsid {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	}

	aux := s.auxFile(log)
	if aux != nil {
		cmd.ExtraFiles = append(cmd.ExtraFiles, aux)
		cmd.Env = envutil.Upsert(cmd.Env, s.auxEnv, strconv.Itoa(auxFD))
	} else if s.auxEnv != "" {
		cmd.Env = envutil.Remove(cmd.Env, s.auxEnv)
	}

	log.Debug("starting display server", "argv", argv)
	err = cmd.Start()
	if aux != nil {
		aux.Close()
	}
	if err != nil {
		readR.Close()
		readW.Close()
		return nil, errors.ServerSpawnFailed(s.server, err)
	}
	// Only the server may hold the write end, so EOF means it went away.
	readW.Close()

	srv := &Server{
		Slot:      claim.Slot,
		PID:       cmd.Process.Pid,
		cmd:       cmd,
		stopGrace: s.stopGrace,
		done:      make(chan struct{}),
		log:       log,
	}
	go srv.wait()

	log.Debug("waiting for readiness", "pid", srv.PID, "timeout", s.readyTimeout)
	if err := waitReady(ctx, readR, claim.Slot, s.readyTimeout); err != nil {
		return srv, err
	}
	log.Debug("display server ready", "pid", srv.PID)
	return srv, nil
}

// auxFile duplicates the descriptor named by the aux socket variable, if the
// launcher was given one, and marks the original close-on-exec. The caller
// closes the copy once the server has been spawned.
func (s *Supervisor) auxFile(log *slog.Logger) *os.File {
	if s.auxEnv == "" {
		return nil
	}
	v, ok := s.LookupEnv(s.auxEnv)
	if !ok {
		return nil
	}
	fd, err := strconv.Atoi(v)
	if err != nil || fd < 0 {
		log.Warn("ignoring invalid descriptor variable", "name", s.auxEnv, "value", v)
		return nil
	}
	// Work on a private copy so the inherited descriptor is never closed here.
	dup, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		log.Warn("ignoring unusable descriptor", "name", s.auxEnv, "fd", fd, "error", err)
		return nil
	}
	// The server gets the copy at auxFD. The original must not reach it a
	// second time, nor the command run afterwards.
	unix.CloseOnExec(fd)
	return os.NewFile(uintptr(dup), s.auxEnv)
}

// Server is a running display server.
type Server struct {
	Slot namespace.Slot
	PID  int

	cmd       *exec.Cmd
	stopGrace time.Duration
	log       *slog.Logger

	done    chan struct{}
	waitErr error

	mu      sync.Mutex
	stopped bool
	stopErr error
}

func (s *Server) wait() {
	s.waitErr = s.cmd.Wait()
	close(s.done)
}

// Done is closed once the server process has exited and been reaped.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// ExitErr returns the error from waiting on the process. It is only
// meaningful after Done is closed.
func (s *Server) ExitErr() error {
	select {
	case <-s.done:
		return s.waitErr
	default:
		return nil
	}
}

// Stop terminates the server and waits for it to exit. A server that has
// already exited is not an error.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return s.stopErr
	}
	s.stopped = true
	s.stopErr = s.terminate()
	return s.stopErr
}

func (s *Server) terminate() error {
	select {
	case <-s.done:
		s.log.Debug("display server already exited", "pid", s.PID, "status", s.waitErr)
		return nil
	default:
	}

	if err := s.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			<-s.done
			return nil
		}
		return fmt.Errorf("failed to send SIGTERM to display server: %w", err)
	}

	if s.stopGrace <= 0 {
		<-s.done
		return nil
	}

	timer := time.NewTimer(s.stopGrace)
	defer timer.Stop()
	select {
	case <-s.done:
		s.log.Debug("display server stopped", "pid", s.PID)
		return nil
	case <-timer.C:
	}

	s.log.Warn("display server ignored SIGTERM, killing", "pid", s.PID, "grace", s.stopGrace)
	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to send SIGKILL to display server: %w", err)
	}
	<-s.done
	return nil
}
