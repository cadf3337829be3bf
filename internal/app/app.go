package app

import (
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/namespace"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/server"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/session"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/slot"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/system"
)

// App holds the application dependencies
type App struct {
	Config     *config.Config
	Namespace  *namespace.Namespace
	Allocator  *slot.Allocator
	Supervisor *server.Supervisor
	Runner     *session.Runner

	fs     system.FileSystem
	binder slot.Binder
}

// Option is a function that configures the App
type Option func(*App)

// WithFileSystem sets the file system used for lock markers
func WithFileSystem(fsys system.FileSystem) Option {
	return func(a *App) {
		a.fs = fsys
	}
}

// WithBinder sets how bind points are created
func WithBinder(b slot.Binder) Option {
	return func(a *App) {
		a.binder = b
	}
}

// New builds the component graph for cfg: namespace, allocator, supervisor
// and runner.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigError("invalid configuration", err)
	}

	app := &App{Config: cfg}
	for _, opt := range opts {
		opt(app)
	}

	ns, err := namespace.New(cfg.NamespaceRoot, app.fs)
	if err != nil {
		return nil, errors.ConfigError("invalid namespace root", err)
	}
	app.Namespace = ns

	allocOpts := []slot.Option{slot.WithMaxSlots(cfg.MaxSlots)}
	if app.binder != nil {
		allocOpts = append(allocOpts, slot.WithBinder(app.binder))
	}
	app.Allocator = slot.New(ns, allocOpts...)

	sup, err := server.New(cfg)
	if err != nil {
		return nil, err
	}
	app.Supervisor = sup

	app.Runner = session.New(cfg, app.Allocator, app.Supervisor)
	return app, nil
}
