package session

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	shellquote "github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/display"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/server"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/slot"
)

// Claimer hands out display slots.
type Claimer interface {
	Claim(ctx context.Context) (*slot.Claim, error)
}

// Launcher starts a display server on a claimed slot.
type Launcher interface {
	Start(ctx context.Context, claim *slot.Claim) (*server.Server, error)
}

// Runner runs commands in their own display session.
type Runner struct {
	slots    Claimer
	launcher Launcher

	displayEnv string
	unsetEnv   []string
	probe      bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Environ returns the environment the command's environment is derived from.
	Environ func() []string
}

// New creates a Runner.
func New(cfg *config.Config, slots Claimer, launcher Launcher) *Runner {
	return &Runner{
		slots:      slots,
		launcher:   launcher,
		displayEnv: cfg.DisplayEnv,
		unsetEnv:   append([]string(nil), cfg.UnsetEnv...),
		probe:      cfg.Probe,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Environ:    os.Environ,
	}
}

// Run runs argv in a new display session and returns its exit status. A
// non-nil error means the status is meaningless and the error's exit code
// applies instead.
func (r *Runner) Run(ctx context.Context, argv []string) (int, error) {
	if len(argv) == 0 {
		return 0, errors.UsageError("no command given")
	}

	log := logging.With("session", uuid.NewString())

	claim, err := r.slots.Claim(ctx)
	if err != nil {
		if errors.Is(err, slot.ErrExhausted) {
			return 0, errors.SlotsExhausted(err)
		}
		return 0, errors.SessionFailed("failed to claim a display slot", err)
	}
	defer release(log, claim)
	log = log.With("slot", claim.Slot)

	srv, err := r.launcher.Start(ctx, claim)
	if srv != nil {
		defer stop(log, srv)
	}
	if err != nil {
		return 0, err
	}

	if r.probe {
		info, err := display.Probe(ctx, claim.SocketPath)
		if err != nil {
			return 0, errors.SessionFailed("display did not answer X11 connection", err)
		}
		log.Debug("display probe succeeded", "vendor", info.Vendor, "width", info.Width, "height", info.Height)
	}

	env := BuildEnv(r.Environ(), r.displayEnv, claim.Slot, r.unsetEnv)
	return r.runCommand(ctx, log, argv, env)
}

func (r *Runner) runCommand(ctx context.Context, log *slog.Logger, argv []string, env []string) (int, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = env
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	signals := make(chan os.Signal, 4)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signals)

	// A signal that cancelled startup after readiness must not launch the
	// command. From here on signals reach the handler above instead.
	if err := ctx.Err(); err != nil {
		return 0, errors.SessionFailed("interrupted before the command started", err)
	}

	log.Debug("running command", "command", shellquote.Join(argv...))
	if err := cmd.Start(); err != nil {
		return 0, startError(argv[0], err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	for {
		select {
		case sig := <-signals:
			if sig == syscall.SIGINT || sig == syscall.SIGQUIT {
				log.Debug("received terminal signal, waiting for command", "signal", sig)
				continue
			}
			log.Debug("forwarding signal", "signal", sig, "pid", cmd.Process.Pid)
			if err := cmd.Process.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
				log.Warn("failed to forward signal", "signal", sig, "error", err)
			}
		case err := <-done:
			code, err := exitStatus(err)
			if err == nil {
				log.Debug("command exited", "status", code)
			}
			return code, err
		}
	}
}

// exitStatus maps the result of Wait to a shell-style exit status.
func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 0, errors.SessionFailed("failed to wait for command", err)
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal()), nil
	}
	return exitErr.ExitCode(), nil
}

func startError(name string, err error) error {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return errors.CommandNotFound(name, err)
	case errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.ENOEXEC), errors.Is(err, syscall.EISDIR):
		return errors.CommandNotExecutable(name, err)
	default:
		return errors.SessionFailed("failed to start command", err)
	}
}

func stop(log *slog.Logger, srv *server.Server) {
	if err := srv.Stop(); err != nil {
		log.Warn("failed to stop display server", "pid", srv.PID, "error", err)
	}
}

func release(log *slog.Logger, claim *slot.Claim) {
	if err := claim.Release(); err != nil {
		log.Warn("failed to release slot", "slot", claim.Slot, "error", err)
	}
}
