package testutil

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	shellquote "github.com/kballard/go-shellquote"
)

const (
	// FakeServerEnv selects the fake server mode in a re-executed test binary.
	FakeServerEnv = "FORAGE_XRUN_FAKE_SERVER"

	// FakeReportEnv names the file the fake server appends its observations to.
	FakeReportEnv = "FORAGE_XRUN_FAKE_REPORT"
)

// FakeMode selects how the fake server behaves.
type FakeMode string

const (
	ModeReady    FakeMode = "ready"
	ModeMismatch FakeMode = "mismatch"
	ModeGarbage  FakeMode = "garbage"
	ModeSilent   FakeMode = "silent"
	ModeExit     FakeMode = "exit"
	ModeStubborn FakeMode = "stubborn"
)

// IsFakeServer reports whether this process was started as a fake server.
func IsFakeServer() bool {
	return os.Getenv(FakeServerEnv) != ""
}

// RunFakeServer runs the fake display server and returns its exit code.
// It records its argv, whether the listen descriptor is a socket, and the
// state of the auxiliary descriptor in the report file.
func RunFakeServer(args []string) int {
	mode := FakeMode(os.Getenv(FakeServerEnv))

	var (
		display   = -1
		listenFD  = -1
		displayFD = -1
	)
	for i := 0; i < len(args); i++ {
		switch {
		case strings.HasPrefix(args[i], ":"):
			display, _ = strconv.Atoi(args[i][1:])
		case args[i] == "-listenfd" && i+1 < len(args):
			listenFD, _ = strconv.Atoi(args[i+1])
			i++
		case args[i] == "-displayfd" && i+1 < len(args):
			displayFD, _ = strconv.Atoi(args[i+1])
			i++
		}
	}

	report("args=" + shellquote.Join(args...))
	report("listen=" + describeFD(listenFD))
	if aux, ok := os.LookupEnv("WAYLAND_SOCKET"); ok {
		fd, _ := strconv.Atoi(aux)
		report("aux=" + aux + ":" + describeFD(fd))
	}
	report(fmt.Sprintf("pid=%d", os.Getpid()))

	if display < 0 || displayFD < 0 {
		fmt.Fprintln(os.Stderr, "fake server: missing :N or -displayfd")
		return 2
	}

	terms := make(chan os.Signal, 1)
	if mode == ModeStubborn {
		signal.Ignore(syscall.SIGTERM)
	} else {
		signal.Notify(terms, syscall.SIGTERM)
	}

	ready := os.NewFile(uintptr(displayFD), "displayfd")
	switch mode {
	case ModeReady, ModeStubborn:
		fmt.Fprintf(ready, "%d\n", display)
	case ModeMismatch:
		fmt.Fprintf(ready, "%d\n", display+1)
	case ModeGarbage:
		fmt.Fprintln(ready, "ready")
	case ModeExit:
		return 1
	case ModeSilent:
	}
	if mode != ModeSilent {
		ready.Close()
	}

	for {
		select {
		case <-terms:
			report("terminated")
			return 0
		case <-time.After(time.Minute):
		}
	}
}

func describeFD(fd int) string {
	if fd < 0 {
		return "none"
	}
	var st syscall.Stat_t
	if err := syscall.Fstat(fd, &st); err != nil {
		return "bad"
	}
	if st.Mode&syscall.S_IFMT == syscall.S_IFSOCK {
		return "socket"
	}
	return "open"
}

func report(line string) {
	path := os.Getenv(FakeReportEnv)
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintln(f, line)
}
