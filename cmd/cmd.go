// Package cmd is the CLI entry point for deston.
package cmd

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pushkar-gr/deston/config"
	"github.com/pushkar-gr/deston/dispatcher"
	"github.com/pushkar-gr/deston/proxy"
	"github.com/pushkar-gr/deston/shutdown"
)

// drainTimeout bounds how long a shutting-down proxy waits for
// in-flight connections/requests to finish before giving up.
const drainTimeout = 30 * time.Second

// Run parses args, loads the config, and runs the load balancer until
// it shuts down gracefully or fails to start. args[0], if present, is
// the config file path; it defaults to "config.toml".
func Run(args []string) error {
	path := "config.toml"
	if len(args) > 0 {
		path = args[0]
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := slog.Default()

	pool := cfg.BuildPool()
	sched := cfg.BuildScheduler()
	disp := dispatcher.New(pool, sched)
	coord := shutdown.New()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal, draining", "signal", sig.String())
		coord.Signal()
	}()

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}

	switch cfg.Layer {
	case config.LayerL7:
		logger.Info("starting L7 (HTTP) load balancer", "addr", cfg.ListenAddr, "algorithm", cfg.Algorithm, "backends", len(cfg.Servers))
		srv := proxy.NewL7Server(disp, coord, logger, cfg.ListenAddr, drainTimeout)
		return srv.Serve(listener)
	default:
		logger.Info("starting L4 (TCP) load balancer", "addr", cfg.ListenAddr, "algorithm", cfg.Algorithm, "backends", len(cfg.Servers))
		srv := proxy.NewL4Server(disp, coord, logger, drainTimeout)
		return srv.Serve(listener)
	}
}
