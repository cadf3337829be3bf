package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/testutil"
)

func TestMain(m *testing.M) {
	if testutil.IsFakeServer() {
		os.Exit(testutil.RunFakeServer(os.Args[1:]))
	}
	os.Exit(m.Run())
}

func executeCommand(args ...string) (int, string, string, error) {
	// Restore every flag to its default so earlier runs (--help included)
	// do not leak into this one.
	for _, fs := range []*pflag.FlagSet{rootCmd.Flags(), rootCmd.PersistentFlags()} {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}

	// A nil slice makes cobra fall back to os.Args.
	if args == nil {
		args = []string{}
	}

	cmd := rootCmd
	cmd.SetArgs(args)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	code, err := Execute()

	// Reset args for next test
	cmd.SetArgs(nil)
	cmd.SetOut(nil)
	cmd.SetErr(nil)

	return code, stdout.String(), stderr.String(), err
}

// isolate keeps tests away from the user's config file.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return testutil.ShortTempDir(t)
}

func TestRootCommand_Help(t *testing.T) {
	_, stdout, _, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("Help command failed: %v", err)
	}

	for _, want := range []string{"forage-xrun", "--list", "--server", "DISPLAY"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("Help output should contain %q", want)
		}
	}
}

func TestRootCommand_NoCommand(t *testing.T) {
	isolate(t)

	_, _, stderr, err := executeCommand()
	if err == nil {
		t.Fatal("Running without a command should fail")
	}
	if code := errors.GetExitCode(err); code != errors.ExitUsage {
		t.Errorf("exit code = %d, want %d", code, errors.ExitUsage)
	}
	if !strings.Contains(stderr, "no command given") {
		t.Errorf("stderr should explain the error, got %q", stderr)
	}
}

func TestRootCommand_FlagsResetBetweenRuns(t *testing.T) {
	isolate(t)

	if _, _, _, err := executeCommand("--help"); err != nil {
		t.Fatalf("Help command failed: %v", err)
	}

	_, stdout, _, err := executeCommand()
	if code := errors.GetExitCode(err); code != errors.ExitUsage {
		t.Errorf("exit code after --help = %d, want %d", code, errors.ExitUsage)
	}
	if strings.Contains(stdout, "Usage:") {
		t.Errorf("--help should not stick to the next run, got %q", stdout)
	}
}

func TestRootCommand_UnknownFlag(t *testing.T) {
	isolate(t)

	_, _, _, err := executeCommand("--no-such-flag", "true")
	if code := errors.GetExitCode(err); code != errors.ExitUsage {
		t.Errorf("exit code = %d, want %d", code, errors.ExitUsage)
	}
}

func TestRootCommand_CleanRequiresList(t *testing.T) {
	isolate(t)

	_, _, _, err := executeCommand("--clean")
	if code := errors.GetExitCode(err); code != errors.ExitUsage {
		t.Errorf("exit code = %d, want %d", code, errors.ExitUsage)
	}
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	root := isolate(t)

	_, _, _, err := executeCommand("--root", root, "--max-slots", "-1", "true")
	if code := errors.GetExitCode(err); code != errors.ExitConfigError {
		t.Errorf("exit code = %d, want %d", code, errors.ExitConfigError)
	}
}

func TestRootCommand_MissingConfigFile(t *testing.T) {
	isolate(t)

	_, _, _, err := executeCommand("--config", "/nonexistent/forage-xrun.toml", "true")
	if code := errors.GetExitCode(err); code != errors.ExitConfigError {
		t.Errorf("exit code = %d, want %d", code, errors.ExitConfigError)
	}
}

func TestRootCommand_RunsCommand(t *testing.T) {
	root := isolate(t)
	t.Setenv(testutil.FakeServerEnv, string(testutil.ModeReady))
	t.Setenv(testutil.FakeReportEnv, filepath.Join(root, "report"))

	out := filepath.Join(root, "display")
	code, _, _, err := executeCommand(
		"--root", root, "--server", os.Args[0], "--timeout", "5s",
		"sh", "-c", `printf '%s' "$DISPLAY" > "$1"; exit 7`, "sh", out,
	)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if code != 7 {
		t.Errorf("exit code = %d, want 7", code)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("command did not run: %v", err)
	}
	if string(data) != ":0" {
		t.Errorf("DISPLAY = %q, want :0", data)
	}
	if _, err := os.Stat(filepath.Join(root, ".X0-lock")); !os.IsNotExist(err) {
		t.Error("lock marker should be removed after the run")
	}
}

func TestRootCommand_CommandFlagsNotParsed(t *testing.T) {
	root := isolate(t)
	t.Setenv(testutil.FakeServerEnv, string(testutil.ModeReady))
	t.Setenv(testutil.FakeReportEnv, filepath.Join(root, "report"))

	out := filepath.Join(root, "args")
	code, _, _, err := executeCommand(
		"--root", root, "--server", os.Args[0],
		"sh", "-c", `echo "$@" > "$0"`, out, "--list", "-v",
	)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("command did not run: %v", err)
	}
	if strings.TrimSpace(string(data)) != "--list -v" {
		t.Errorf("command args = %q, want \"--list -v\"", data)
	}
}

func TestRootCommand_StartupFailure(t *testing.T) {
	root := isolate(t)
	t.Setenv(testutil.FakeServerEnv, string(testutil.ModeMismatch))
	t.Setenv(testutil.FakeReportEnv, filepath.Join(root, "report"))

	_, _, stderr, err := executeCommand("--root", root, "--server", os.Args[0], "true")
	if code := errors.GetExitCode(err); code != errors.ExitServerNotReady {
		t.Errorf("exit code = %d, want %d", code, errors.ExitServerNotReady)
	}
	if !strings.Contains(stderr, "could not start display session") {
		t.Errorf("stderr should report a startup failure, got %q", stderr)
	}
}

func TestRootCommand_SIGQUITDuringStartup(t *testing.T) {
	root := isolate(t)
	t.Setenv(testutil.FakeServerEnv, string(testutil.ModeSilent))
	t.Setenv(testutil.FakeReportEnv, filepath.Join(root, "report"))

	go func() {
		time.Sleep(500 * time.Millisecond)
		_ = syscall.Kill(os.Getpid(), syscall.SIGQUIT)
	}()

	out := filepath.Join(root, "ran")
	_, _, _, err := executeCommand(
		"--root", root, "--server", os.Args[0], "--timeout", "5s",
		"sh", "-c", `touch "$0"`, out,
	)
	if code := errors.GetExitCode(err); code != errors.ExitSessionFailed {
		t.Errorf("exit code = %d, want %d", code, errors.ExitSessionFailed)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("command should not run after SIGQUIT during startup")
	}
	if _, err := os.Stat(filepath.Join(root, ".X0-lock")); !os.IsNotExist(err) {
		t.Error("lock marker should be removed after SIGQUIT")
	}
	if _, err := os.Stat(filepath.Join(root, ".X11-unix", "X0")); !os.IsNotExist(err) {
		t.Error("bind point should be removed after SIGQUIT")
	}
}

func TestListCommand_Empty(t *testing.T) {
	root := isolate(t)

	_, stdout, _, err := executeCommand("--root", root, "--list")
	if err != nil {
		t.Fatalf("--list failed: %v", err)
	}
	if !strings.Contains(stdout, "No display slots in use") {
		t.Errorf("unexpected output: %q", stdout)
	}
}

// writeStaleLock creates a lock marker naming a PID above any possible pid_max.
func writeStaleLock(t *testing.T, root string, slot int) string {
	t.Helper()
	path := filepath.Join(root, fmt.Sprintf(".X%d-lock", slot))
	if err := os.WriteFile(path, []byte("2147483646\n"), 0o444); err != nil {
		t.Fatalf("Failed to write lock: %v", err)
	}
	return path
}

func TestListCommand_JSON(t *testing.T) {
	root := isolate(t)
	writeStaleLock(t, root, 3)

	_, stdout, _, err := executeCommand("--root", root, "--list", "--format", "json")
	if err != nil {
		t.Fatalf("--list failed: %v", err)
	}

	var rows []struct {
		Slot    int    `json:"slot"`
		Display string `json:"display"`
		HasLock bool   `json:"has_lock"`
		State   string `json:"state"`
	}
	if err := json.Unmarshal([]byte(stdout), &rows); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Display != ":3" || !rows[0].HasLock || rows[0].State != "stale" {
		t.Errorf("unexpected row: %+v", rows[0])
	}
}

func TestListCommand_Table(t *testing.T) {
	root := isolate(t)
	writeStaleLock(t, root, 2)

	_, stdout, _, err := executeCommand("--root", root, "--list")
	if err != nil {
		t.Fatalf("--list failed: %v", err)
	}
	for _, want := range []string{"DISPLAY", ":2", "stale", "(dead)"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("table should contain %q:\n%s", want, stdout)
		}
	}
}

func TestListCommand_Clean(t *testing.T) {
	root := isolate(t)
	lock := writeStaleLock(t, root, 4)

	_, stdout, _, err := executeCommand("--root", root, "--list", "--clean")
	if err != nil {
		t.Fatalf("--list --clean failed: %v", err)
	}
	if _, err := os.Stat(lock); !os.IsNotExist(err) {
		t.Error("stale lock marker should be removed")
	}
	if !strings.Contains(stdout, "Removed stale artifacts for :4") {
		t.Errorf("unexpected output: %q", stdout)
	}
}

func TestListCommand_CleanKeepsUnknownOwner(t *testing.T) {
	root := isolate(t)
	lock := filepath.Join(root, ".X6-lock")
	if err := os.WriteFile(lock, nil, 0o444); err != nil {
		t.Fatalf("Failed to write lock: %v", err)
	}

	_, stdout, _, err := executeCommand("--root", root, "--list", "--clean")
	if err != nil {
		t.Fatalf("--list --clean failed: %v", err)
	}
	if _, err := os.Stat(lock); err != nil {
		t.Errorf("lock marker without an owner should be kept: %v", err)
	}
	if !strings.Contains(stdout, "unknown") {
		t.Errorf("table should show the slot as unknown:\n%s", stdout)
	}
}

func TestListCommand_BadFormat(t *testing.T) {
	root := isolate(t)

	_, _, _, err := executeCommand("--root", root, "--list", "--format", "xml")
	if code := errors.GetExitCode(err); code != errors.ExitUsage {
		t.Errorf("exit code = %d, want %d", code, errors.ExitUsage)
	}
}
