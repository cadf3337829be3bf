package display

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// DefaultTimeout bounds a probe when ctx has no deadline.
const DefaultTimeout = 2 * time.Second

func init() {
	// xgb logs authority lookups and read errors to stderr.
	xgb.Logger = log.New(io.Discard, "", 0)
}

// Info describes a display that answered a probe.
type Info struct {
	Vendor  string `json:"vendor"`
	Release uint32 `json:"release"`
	Screens int    `json:"screens"`
	Width   uint16 `json:"width"`
	Height  uint16 `json:"height"`
}

// Probe connects to the X server listening on socketPath.
func Probe(ctx context.Context, socketPath string) (*Info, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	var d net.Dialer
	netConn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		netConn.SetDeadline(deadline)
	}

	type result struct {
		info *Info
		err  error
	}
	done := make(chan result, 1)
	go func() {
		info, err := handshake(netConn)
		done <- result{info, err}
	}()

	select {
	case res := <-done:
		return res.info, res.err
	case <-ctx.Done():
		netConn.Close()
		return nil, fmt.Errorf("probe %s: %w", socketPath, ctx.Err())
	}
}

func handshake(netConn net.Conn) (*Info, error) {
	conn, err := xgb.NewConnNet(netConn)
	if err != nil {
		netConn.Close()
		return nil, fmt.Errorf("X11 setup failed: %w", err)
	}
	defer conn.Close()

	setup := xproto.Setup(conn)
	if _, err := xproto.GetInputFocus(conn).Reply(); err != nil {
		return nil, fmt.Errorf("X11 round trip failed: %w", err)
	}

	info := &Info{
		Vendor:  setup.Vendor,
		Release: setup.ReleaseNumber,
		Screens: len(setup.Roots),
	}
	if screen := setup.DefaultScreen(conn); screen != nil {
		info.Width = screen.WidthInPixels
		info.Height = screen.HeightInPixels
	}
	return info, nil
}
