package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/pushkar-gr/deston/dispatcher"
	"github.com/pushkar-gr/deston/shutdown"
)

// L7Server is the Layer 7 (HTTP/1.1) accept/retry loop. It leans on
// net/http.Server for connection handling (keep-alive, pipelining,
// request parsing) and supplies serveHTTP as the per-request retry
// loop described in spec.md §4.4.
//
// Header case is not literally preserved the way the source's hyper
// server does (preserve_header_case/title_case_headers): net/http
// canonicalizes header names on both the read and write path, and
// there's no public hook to turn that off without hijacking the
// connection. Every other header is still forwarded verbatim.
type L7Server struct {
	dispatcher   *dispatcher.Dispatcher
	shutdown     *shutdown.Coordinator
	logger       *slog.Logger
	lbAddr       string
	drainTimeout time.Duration

	httpServer *http.Server
	client     *http.Client
}

// NewL7Server builds an L7Server. lbAddr is this load balancer's own
// listen address, used as the Forwarded header's by= field.
func NewL7Server(d *dispatcher.Dispatcher, sd *shutdown.Coordinator, logger *slog.Logger, lbAddr string, drainTimeout time.Duration) *L7Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &L7Server{
		dispatcher:   d,
		shutdown:     sd,
		logger:       logger,
		lbAddr:       lbAddr,
		drainTimeout: drainTimeout,
		client: &http.Client{
			// DisableKeepAlives forces a fresh connection per attempt,
			// matching the source's per-attempt hyper client handshake.
			Transport: &http.Transport{DisableKeepAlives: true},
		},
	}
	s.httpServer = &http.Server{Handler: http.HandlerFunc(s.serveHTTP)}
	return s
}

// Serve accepts HTTP/1.1 connections on l until shutdown is signaled,
// then waits up to drainTimeout for in-flight requests to finish. It
// returns nil on a clean shutdown, or an error if the drain timed out
// or the server failed for a reason other than shutdown.
func (s *L7Server) Serve(l net.Listener) error {
	drained := make(chan error, 1)
	go func() {
		<-s.shutdown.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
		defer cancel()
		err := s.httpServer.Shutdown(ctx)
		if err != nil {
			s.logger.Warn("l7: shutdown drain timed out", "err", err)
		}
		drained <- err
	}()

	err := s.httpServer.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return <-drained
	}
	return err
}

// serveHTTP is the per-request retry loop: buffer the body once,
// dispatch to a backend, forward, and on upstream failure ask the
// dispatcher for a backend again — at most pool.Len() attempts in all.
// Each attempt is a fresh Choose call, so the same backend can be
// picked more than once within one request (under IP-hash, the same
// client address always maps to the same backend).
func (s *L7Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	clientAddr := r.RemoteAddr

	body, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	maxAttempts := s.dispatcher.Pool().Len()
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		b, err := s.dispatcher.Choose(clientAddr)
		if err != nil {
			http.Error(w, "no backend available", http.StatusBadGateway)
			return
		}

		b.BeginConnection()
		start := time.Now()
		ok, err := s.forward(w, r, b, body, clientAddr)
		b.EndConnection(ok, time.Since(start))
		if ok {
			return
		}
		lastErr = err
		s.logger.Debug("l7: attempt failed, retrying", "backend", b.Addr(), "attempt", attempt, "err", err)
	}

	s.logger.Warn("l7: all backends failed", "client", clientAddr, "attempts", maxAttempts, "err", lastErr)
	http.Error(w, "all backends failed", http.StatusBadGateway)
}

// forward sends one attempt of the buffered request to b and, on
// success, streams the response back to w. It reports whether the
// attempt succeeded so the caller can decide whether to retry.
func (s *L7Server) forward(w http.ResponseWriter, r *http.Request, b backendHandle, body []byte, clientAddr string) (bool, error) {
	target := url.URL{Scheme: "http", Host: b.Addr(), Path: r.URL.Path, RawQuery: r.URL.RawQuery}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header = r.Header.Clone()
	req.Host = b.Host()
	req.Header.Add("Forwarded", fmt.Sprintf("by=%s; for=%s; host=%s; proto=http1", s.lbAddr, clientAddr, b.URI()))

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	// Once the response head is in hand the attempt is committed: the
	// client is about to see a status line from this backend, so a
	// body-copy failure from here on is logged, not retried.
	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		s.logger.Debug("l7: response body copy error", "backend", b.Addr(), "err", err)
	}
	return true, nil
}

// backendHandle is the subset of *backend.Backend this file needs;
// named separately only to keep forward's signature readable.
type backendHandle interface {
	Addr() string
	Host() string
	URI() string
}
