package proxy_test

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushkar-gr/deston/backend"
	"github.com/pushkar-gr/deston/dispatcher"
	"github.com/pushkar-gr/deston/proxy"
	"github.com/pushkar-gr/deston/scheduler"
	"github.com/pushkar-gr/deston/shutdown"
)

// startEcho starts a TCP server that echoes everything it reads back
// to the client, until the client half-closes its write side.
func startEcho(t *testing.T) net.Listener {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				io.Copy(c, c)
			}(conn)
		}
	}()
	return l
}

// S6: L4 proxy with one echo backend; shutdown signal sent after
// 100ms; the accept loop terminates within 5s and an already-open
// conversation completes.
func TestL4Server_GracefulShutdown(t *testing.T) {
	echoLn := startEcho(t)
	defer echoLn.Close()

	echoAddr := echoLn.Addr().(*net.TCPAddr)
	pool := backend.NewPool(backend.New(echoAddr.IP.String(), echoAddr.Port, 1000, 1))
	d := dispatcher.New(pool, scheduler.NewRoundRobin())
	coord := shutdown.New()
	srv := proxy.NewL4Server(d, coord, nil, 5*time.Second)

	lbLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(lbLn) }()

	client, err := net.Dial("tcp", lbLn.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	time.Sleep(100 * time.Millisecond)
	coord.Signal()

	_, err = client.Write([]byte("hello"))
	require.NoError(t, err)

	buf := make([]byte, 5)
	client.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err = io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
	client.(*net.TCPConn).CloseWrite()

	select {
	case err := <-serveErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return within 5s of shutdown signal")
	}
}

func TestL4Server_NoBackendDropsConnection(t *testing.T) {
	d := dispatcher.New(backend.NewPool(), scheduler.NewRoundRobin())
	coord := shutdown.New()
	srv := proxy.NewL4Server(d, coord, nil, time.Second)

	lbLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go srv.Serve(lbLn)
	defer coord.Signal()

	client, err := net.Dial("tcp", lbLn.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	buf := make([]byte, 1)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = client.Read(buf)
	assert.Error(t, err) // connection is dropped, not echoed
}
