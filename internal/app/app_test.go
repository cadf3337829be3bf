package app

import (
	"testing"

	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/slot"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/system"
)

func TestNew_Defaults(t *testing.T) {
	app, err := New(nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if app.Config == nil || app.Namespace == nil || app.Allocator == nil || app.Supervisor == nil || app.Runner == nil {
		t.Fatalf("New() left components unset: %+v", app)
	}
	if app.Namespace.Root() != config.DefaultNamespaceRoot {
		t.Errorf("Root() = %q, want %q", app.Namespace.Root(), config.DefaultNamespaceRoot)
	}
	if app.Allocator.MaxSlots() != config.DefaultMaxSlots {
		t.Errorf("MaxSlots() = %d, want %d", app.Allocator.MaxSlots(), config.DefaultMaxSlots)
	}
}

func TestNew_UsesConfig(t *testing.T) {
	cfg := config.Default()
	cfg.NamespaceRoot = "/run/forage-xrun"
	cfg.MaxSlots = 8

	app, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if app.Config != cfg {
		t.Error("Config should be the one passed in")
	}
	if app.Namespace.LockPath(3) != "/run/forage-xrun/.X3-lock" {
		t.Errorf("LockPath(3) = %q", app.Namespace.LockPath(3))
	}
	if app.Allocator.MaxSlots() != 8 {
		t.Errorf("MaxSlots() = %d, want 8", app.Allocator.MaxSlots())
	}
	if argv := app.Supervisor.Argv(3); argv[0] != "Xwayland" || argv[1] != ":3" {
		t.Errorf("Argv(3) = %v", argv)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.MaxSlots = 0

	_, err := New(cfg)
	if err == nil {
		t.Fatal("New() should reject an invalid config")
	}
	if code := errors.GetExitCode(err); code != errors.ExitConfigError {
		t.Errorf("exit code = %d, want %d", code, errors.ExitConfigError)
	}
}

func TestNew_WithFileSystem(t *testing.T) {
	mockFS := system.NewMockFS()

	app, err := New(config.Default(), WithFileSystem(mockFS))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if app.Namespace.FS() != mockFS {
		t.Error("WithFileSystem did not set the namespace file system")
	}
}

func TestNew_WithBinder(t *testing.T) {
	mockFS := system.NewMockFS()
	called := ""
	binder := func(path string) (slot.BindPoint, error) {
		called = path
		return nil, errors.New(errors.ExitGeneralError, "bind refused")
	}

	cfg := config.Default()
	cfg.MaxSlots = 1

	app, err := New(cfg, WithFileSystem(mockFS), WithBinder(binder))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if _, err := app.Allocator.Claim(t.Context()); err == nil {
		t.Fatal("Claim() should fail when every bind is refused")
	}
	if called != "/tmp/.X11-unix/X0" {
		t.Errorf("binder called with %q, want /tmp/.X11-unix/X0", called)
	}
	if _, ok := mockFS.GetFile("/tmp/.X0-lock"); ok {
		t.Error("lock marker should be rolled back after the bind failed")
	}
}
