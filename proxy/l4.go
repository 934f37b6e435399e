// Package proxy implements the two proxy modes: L4 (opaque TCP relay)
// and L7 (HTTP/1.1 request proxy with retries).
package proxy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pushkar-gr/deston/dispatcher"
	"github.com/pushkar-gr/deston/shutdown"
)

// L4Server is the Layer 4 (TCP) accept/relay loop.
type L4Server struct {
	dispatcher   *dispatcher.Dispatcher
	shutdown     *shutdown.Coordinator
	logger       *slog.Logger
	drainTimeout time.Duration

	wg sync.WaitGroup
}

// NewL4Server builds an L4Server. drainTimeout bounds how long Serve
// waits for in-flight connections to finish after shutdown is signaled.
func NewL4Server(d *dispatcher.Dispatcher, sd *shutdown.Coordinator, logger *slog.Logger, drainTimeout time.Duration) *L4Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &L4Server{dispatcher: d, shutdown: sd, logger: logger, drainTimeout: drainTimeout}
}

// Serve accepts connections on l until shutdown is signaled, then
// waits up to drainTimeout for in-flight relays to finish. It returns
// nil on a clean shutdown, or an error if the drain timed out. Accept
// errors not caused by shutdown are logged and the loop keeps accepting.
func (s *L4Server) Serve(l net.Listener) error {
	go func() {
		<-s.shutdown.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if s.shutdown.Signaled() {
				break
			}
			s.logger.Error("l4: accept", "err", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
	defer cancel()
	return s.drain(ctx)
}

func (s *L4Server) drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.New("l4: shutdown drain timed out with connections still open")
	}
}

func (s *L4Server) handleConn(client net.Conn) {
	defer client.Close()
	clientAddr := client.RemoteAddr().String()

	b, err := s.dispatcher.Choose(clientAddr)
	if err != nil {
		s.logger.Warn("l4: no backend for connection", "client", clientAddr, "err", err)
		return
	}

	b.BeginConnection()
	start := time.Now()

	backendConn, err := net.Dial("tcp", b.Addr())
	if err != nil {
		s.logger.Warn("l4: dial backend failed", "backend", b.Addr(), "err", err)
		b.EndConnection(false, time.Since(start))
		return
	}
	defer backendConn.Close()

	err = relay(client, backendConn, s.logger, clientAddr, b.Addr())
	b.EndConnection(err == nil, time.Since(start))
}

// relay splices both directions between client and backendConn
// concurrently, half-closing each peer's write side once its source
// reaches EOF so the other end observes a clean end-of-stream. Each
// direction's transport error is logged independently; relay reports
// failure if either direction errored.
func relay(client, backendConn net.Conn, logger *slog.Logger, clientAddr, backendAddr string) error {
	var g errgroup.Group

	g.Go(func() error {
		_, err := io.Copy(backendConn, client)
		closeWrite(backendConn)
		if err != nil {
			logger.Debug("l4: client->backend copy error", "client", clientAddr, "backend", backendAddr, "err", err)
		}
		return err
	})

	g.Go(func() error {
		_, err := io.Copy(client, backendConn)
		closeWrite(client)
		if err != nil {
			logger.Debug("l4: backend->client copy error", "client", clientAddr, "backend", backendAddr, "err", err)
		}
		return err
	})

	return g.Wait()
}

// closeWrite half-closes the write side of conn if it supports it
// (true of *net.TCPConn), letting the peer see EOF without severing
// the direction that might still be draining.
func closeWrite(conn net.Conn) {
	type writeCloser interface{ CloseWrite() error }
	if wc, ok := conn.(writeCloser); ok {
		_ = wc.CloseWrite()
	}
}
