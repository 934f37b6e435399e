// Package config loads the TOML configuration that feeds the rest of
// Deston: listen address, scheduling algorithm, proxy layer and the
// backend pool.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/pushkar-gr/deston/backend"
	"github.com/pushkar-gr/deston/scheduler"
)

// Layer selects which proxy mode Deston runs in.
type Layer string

const (
	LayerL4 Layer = "L4"
	LayerL7 Layer = "L7"
)

// Config is the fully resolved, validated view of a TOML config file.
type Config struct {
	ListenAddr string
	Algorithm  string // normalized to one of the scheduler.Algorithm* constants
	Layer      Layer
	Servers    []ServerConfig
}

// ServerConfig describes one [[server]] entry.
type ServerConfig struct {
	Host           string
	Port           int
	MaxConnections int
	Weight         int
}

// raw mirrors the TOML document shape before defaulting/validation.
type raw struct {
	LoadBalancer struct {
		Address   string `toml:"address"`
		Port      int    `toml:"port"`
		Algorithm string `toml:"algorithm"`
		Layer     string `toml:"layer"`
	} `toml:"load_balancer"`
	Server []struct {
		Address        string `toml:"address"`
		Port           int    `toml:"port"`
		MaxConnections int    `toml:"max_connections"`
		Weight         int    `toml:"weight"`
	} `toml:"server"`
}

func defaultRaw() raw {
	var r raw
	r.LoadBalancer.Address = "localhost"
	r.LoadBalancer.Port = 8080
	r.LoadBalancer.Algorithm = "roundrobin"
	r.LoadBalancer.Layer = "L4"
	return r
}

// Load reads and validates a TOML config file at path. A missing or
// malformed file is a fatal startup error — this port does not
// silently synthesize a config for a missing path, matching
// original_source's config.rs, which panics rather than guessing.
func Load(path string) (*Config, error) {
	r := defaultRaw()
	if _, err := toml.DecodeFile(path, &r); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := &Config{
		ListenAddr: net.JoinHostPort(r.LoadBalancer.Address, strconv.Itoa(r.LoadBalancer.Port)),
		Algorithm:  normalizeAlgorithm(r.LoadBalancer.Algorithm),
	}

	switch strings.ToUpper(strings.TrimSpace(r.LoadBalancer.Layer)) {
	case "", string(LayerL4):
		cfg.Layer = LayerL4
	case string(LayerL7):
		cfg.Layer = LayerL7
	default:
		return nil, fmt.Errorf("config: unknown layer %q (want L4 or L7)", r.LoadBalancer.Layer)
	}

	if len(r.Server) == 0 {
		cfg.Servers = []ServerConfig{
			{Host: "127.0.0.1", Port: 3000, MaxConnections: 1000, Weight: 1},
			{Host: "127.0.0.1", Port: 3001, MaxConnections: 1000, Weight: 1},
		}
		return cfg, nil
	}

	for i, s := range r.Server {
		sc := ServerConfig{
			Host:           s.Address,
			Port:           s.Port,
			MaxConnections: s.MaxConnections,
			Weight:         s.Weight,
		}
		if sc.Host == "" {
			sc.Host = "localhost"
		}
		if sc.Port == 0 {
			sc.Port = 3000
		}
		if sc.MaxConnections == 0 {
			sc.MaxConnections = 1000
		}
		if sc.MaxConnections < 0 {
			return nil, fmt.Errorf("config: server[%d] (%s:%d): max_connections must be >= 1, got %d", i, sc.Host, sc.Port, sc.MaxConnections)
		}
		if sc.Weight == 0 {
			sc.Weight = 1
		}
		if sc.Weight < 0 {
			return nil, fmt.Errorf("config: server[%d] (%s:%d): weight must be >= 1, got %d", i, sc.Host, sc.Port, sc.Weight)
		}
		cfg.Servers = append(cfg.Servers, sc)
	}
	return cfg, nil
}

// normalizeAlgorithm maps the case-insensitive spelling families in
// spec.md §6 onto the scheduler package's canonical names. Unknown
// spellings fall back to round-robin, per spec.
func normalizeAlgorithm(s string) string {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "")) {
	case "weightedroundrobin":
		return scheduler.AlgorithmWeightedRoundRobin
	case "iphashing":
		return scheduler.AlgorithmIPHash
	default:
		return scheduler.AlgorithmRoundRobin
	}
}

// BuildPool constructs a backend.Pool from the resolved server list.
func (c *Config) BuildPool() *backend.Pool {
	backends := make([]*backend.Backend, 0, len(c.Servers))
	for _, s := range c.Servers {
		backends = append(backends, backend.New(s.Host, s.Port, s.MaxConnections, s.Weight))
	}
	return backend.NewPool(backends...)
}

// BuildScheduler returns the scheduler named by c.Algorithm.
func (c *Config) BuildScheduler() scheduler.Scheduler {
	return scheduler.New(c.Algorithm)
}
