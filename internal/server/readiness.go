package server

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/namespace"
)

var (
	// ErrTimeout means no readiness report arrived within the ready timeout.
	ErrTimeout = stderrors.New("timed out waiting for readiness report")

	// ErrReadinessMismatch means the server's report was missing, malformed
	// or named a different display.
	ErrReadinessMismatch = stderrors.New("readiness report does not match slot")
)

type readResult struct {
	line string
	err  error
}

// waitReady reads one line from r and checks it names want. r is closed on
// return, which also unblocks the reader when the wait is abandoned.
func waitReady(ctx context.Context, r *os.File, want namespace.Slot, timeout time.Duration) error {
	defer r.Close()

	lines := make(chan readResult, 1)
	go func() {
		line, err := bufio.NewReader(r).ReadString('\n')
		lines <- readResult{line: line, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-lines:
		return checkReport(res, want)
	case <-timer.C:
		return errors.ServerTimeout(int(want), fmt.Errorf("%w after %s", ErrTimeout, timeout))
	case <-ctx.Done():
		return errors.SessionFailed("interrupted while waiting for display server", ctx.Err())
	}
}

func checkReport(res readResult, want namespace.Slot) error {
	if strings.TrimSpace(res.line) == "" {
		cause := fmt.Errorf("%w: server closed the readiness pipe without reporting", ErrReadinessMismatch)
		if res.err != nil && !errors.Is(res.err, io.EOF) {
			cause = fmt.Errorf("%w: %v", cause, res.err)
		}
		return errors.ServerNotReady(int(want), cause)
	}

	got, err := namespace.ParseSlot(res.line)
	if err != nil {
		return errors.ServerNotReady(int(want), fmt.Errorf("%w: unexpected report %q", ErrReadinessMismatch, strings.TrimSpace(res.line)))
	}
	if got != want {
		return errors.ServerNotReady(int(want), fmt.Errorf("%w: server reported %s, expected %s", ErrReadinessMismatch, got.Display(), want.Display()))
	}
	return nil
}
