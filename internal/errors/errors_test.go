package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestXrunError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *XrunError
		wantMsg string
	}{
		{
			name:    "without cause",
			err:     New(ExitGeneralError, "something went wrong"),
			wantMsg: "something went wrong",
		},
		{
			name:    "with cause",
			err:     Wrap(ExitGeneralError, "operation failed", fmt.Errorf("underlying error")),
			wantMsg: "operation failed: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestXrunError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ExitGeneralError, "wrapped", cause)

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	errNoCause := New(ExitGeneralError, "no cause")
	if unwrapped := errNoCause.Unwrap(); unwrapped != nil {
		t.Errorf("Unwrap() = %v, want nil", unwrapped)
	}
}

func TestConstructors(t *testing.T) {
	cause := fmt.Errorf("boom")

	tests := []struct {
		name     string
		err      *XrunError
		wantCode int
		wantMsg  string
		startup  bool
	}{
		{"usage", UsageError("no command given"), ExitUsage, "no command given", false},
		{"config", ConfigError("bad config", cause), ExitConfigError, "bad config: boom", false},
		{"exhausted", SlotsExhausted(cause), ExitSlotsExhausted, "no free display slot: boom", true},
		{"spawn", ServerSpawnFailed("Xwayland", cause), ExitServerSpawn, "failed to start Xwayland: boom", true},
		{"timeout", ServerTimeout(3, cause), ExitServerTimeout, "display server for :3 did not become ready: boom", true},
		{"not ready", ServerNotReady(4, cause), ExitServerNotReady, "display server for :4 failed readiness check: boom", true},
		{"session", SessionFailed("setup failed", cause), ExitSessionFailed, "setup failed: boom", true},
		{"not found", CommandNotFound("xterm", cause), ExitCommandNotFound, "command not found: xterm: boom", false},
		{"not executable", CommandNotExecutable("./x", cause), ExitCommandNotExecutable, "cannot execute ./x: boom", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %d, want %d", tt.err.Code, tt.wantCode)
			}
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Startup(); got != tt.startup {
				t.Errorf("Startup() = %v, want %v", got, tt.startup)
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"xrun error", SlotsExhausted(nil), ExitSlotsExhausted},
		{"wrapped xrun error", fmt.Errorf("context: %w", ServerTimeout(1, nil)), ExitServerTimeout},
		{"plain error", errors.New("plain"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsStartup(t *testing.T) {
	if !IsStartup(fmt.Errorf("outer: %w", ServerNotReady(0, nil))) {
		t.Error("wrapped ServerNotReady should be a startup error")
	}
	if IsStartup(CommandNotFound("x", nil)) {
		t.Error("CommandNotFound should not be a startup error")
	}
	if IsStartup(errors.New("plain")) {
		t.Error("plain error should not be a startup error")
	}
}

func TestErrorChaining(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := ServerTimeout(7, fmt.Errorf("wait: %w", sentinel))

	if !Is(err, sentinel) {
		t.Error("Is() should find sentinel through the chain")
	}

	var xrunErr *XrunError
	if !As(err, &xrunErr) {
		t.Fatal("As() should find XrunError")
	}
	if xrunErr.Code != ExitServerTimeout {
		t.Errorf("Code = %d, want %d", xrunErr.Code, ExitServerTimeout)
	}
}
