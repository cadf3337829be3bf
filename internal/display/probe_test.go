package display

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/testutil"
)

func TestProbe_NoServer(t *testing.T) {
	path := filepath.Join(testutil.ShortTempDir(t), "X0")

	_, err := Probe(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestProbe_ServerHangsUp(t *testing.T) {
	path := filepath.Join(testutil.ShortTempDir(t), "X0")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	_, err = Probe(context.Background(), path)
	assert.Error(t, err)
}

func TestProbe_ServerSilent(t *testing.T) {
	path := filepath.Join(testutil.ShortTempDir(t), "X0")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()
	defer func() {
		select {
		case conn := <-accepted:
			conn.Close()
		default:
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = Probe(ctx, path)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
