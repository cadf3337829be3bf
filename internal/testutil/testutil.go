package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/config"
)

// ShortTempDir creates a temporary directory with a short path. Unix socket
// paths are limited to about 100 bytes, which t.TempDir often exceeds once
// the test name is included.
func ShortTempDir(t *testing.T) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "xr")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// TestEnv holds the test environment
type TestEnv struct {
	Root       string
	Config     *config.Config
	ReportPath string
}

// NewTestEnv creates a namespace root and a config using it. The server is
// left at its default until UseFakeServer is called.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	root := ShortTempDir(t)

	cfg := config.Default()
	cfg.NamespaceRoot = root
	cfg.MaxSlots = 32
	cfg.ReadyTimeout = config.Duration{Duration: 5 * time.Second}
	cfg.StopGrace = config.Duration{Duration: 5 * time.Second}

	return &TestEnv{
		Root:       root,
		Config:     cfg,
		ReportPath: filepath.Join(root, "fake-server.report"),
	}
}

// UseFakeServer points the config at the test binary and selects the fake
// server's behaviour. It uses t.Setenv, so the calling test cannot be parallel.
func (e *TestEnv) UseFakeServer(t *testing.T, mode FakeMode) {
	t.Helper()

	t.Setenv(FakeServerEnv, string(mode))
	t.Setenv(FakeReportEnv, e.ReportPath)
	e.Config.Server = os.Args[0]
	e.Config.ServerArgs = "-noreset -core"
}

// Report returns the lines the fake server wrote to its report file.
func (e *TestEnv) Report(t *testing.T) []string {
	t.Helper()

	data, err := os.ReadFile(e.ReportPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("Failed to read fake server report: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

// ServerStarts counts how many fake server processes reported in.
func (e *TestEnv) ServerStarts(t *testing.T) int {
	t.Helper()

	n := 0
	for _, line := range e.Report(t) {
		if strings.HasPrefix(line, "pid=") {
			n++
		}
	}
	return n
}

// WaitGone polls until pid no longer exists or the timeout elapses.
func WaitGone(pid int, timeout time.Duration, alive func(int) bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !alive(pid) {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return !alive(pid)
}
