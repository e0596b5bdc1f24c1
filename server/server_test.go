package server

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestServer(t *testing.T, cfg *Config) (*Server, net.Conn) {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Address == "" {
		cfg.Address = "127.0.0.1:0"
	}
	srv, err := NewServer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return srv, conn
}

func TestServerEchoesPingFrame(t *testing.T) {
	_, conn := dialTestServer(t, nil)

	_, err := conn.Write([]byte("*1\r\n$4\r\nPING\r\n"))
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "*1\r\n$4\r\nPING\r\n", string(buf[:n]))
}

func TestServerClosesCleanlyOnPeerEOF(t *testing.T) {
	_, conn := dialTestServer(t, nil)

	require.NoError(t, conn.(*net.TCPConn).CloseWrite())

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(conn)
	_, err := r.ReadByte()
	assert.Error(t, err)
}

func TestServerAddrUsesResolvedEphemeralPort(t *testing.T) {
	srv, err := NewServer(context.Background(), &Config{Address: "127.0.0.1:0"})
	require.NoError(t, err)
	defer srv.Close()

	tcpAddr, ok := srv.Addr().(*net.TCPAddr)
	require.True(t, ok)
	assert.NotZero(t, tcpAddr.Port)
}
