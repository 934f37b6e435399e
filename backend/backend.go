// Package backend represents one upstream server and the ordered pool
// of them a scheduler picks from.
package backend

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pushkar-gr/deston/metrics"
)

// Backend is one configured upstream. Host and port are immutable
// after construction; the counters below are the only mutable state.
// The connection counters are lock-free atomics, the running average
// carries its own lock, and every remaining field lives behind mu.
type Backend struct {
	host string
	port string
	uri  string // "host:port", cached for dialing and for the Forwarded header

	maxConnections int
	weight         int

	connections          metrics.Gauge
	totalConnections     metrics.Counter
	successfulConns      metrics.Counter
	failedConns          metrics.Counter
	avgResponseTime      metrics.RunningAverage

	mu               sync.Mutex
	lastRequestTime  time.Time
	lastHealthCheck  time.Time
	lastResponseTime time.Duration
	isAlive          bool
}

// New builds a Backend from a host:port address. weight must be >= 1
// and maxConnections >= 1; New panics if either is violated since
// those invariants are enforced once, at config-load time, by the
// caller (config.Load) — by the time a Backend is constructed they
// must already hold.
func New(host string, port int, maxConnections, weight int) *Backend {
	if weight < 1 {
		panic(fmt.Sprintf("backend: weight must be >= 1, got %d", weight))
	}
	if maxConnections < 1 {
		panic(fmt.Sprintf("backend: max_connections must be >= 1, got %d", maxConnections))
	}
	portStr := fmt.Sprintf("%d", port)
	return &Backend{
		host:           host,
		port:           portStr,
		uri:            net.JoinHostPort(host, portStr),
		maxConnections: maxConnections,
		weight:         weight,
		isAlive:        true,
	}
}

// Host returns the backend's host, e.g. "127.0.0.1".
func (b *Backend) Host() string { return b.host }

// Addr returns the "host:port" dial address for this backend.
func (b *Backend) Addr() string { return b.uri }

// URI returns the backend address in the "http://host:port" form used
// by the Forwarded header's host= field.
func (b *Backend) URI() string { return "http://" + b.uri }

// Weight returns the configured weight (>= 1).
func (b *Backend) Weight() int { return b.weight }

// MaxConnections returns the advisory connection ceiling.
func (b *Backend) MaxConnections() int { return b.maxConnections }

// Connections returns the current in-flight connection count.
func (b *Backend) Connections() int64 { return b.connections.Value() }

// TotalConnections returns the monotonic lifetime connection count.
func (b *Backend) TotalConnections() int64 { return b.totalConnections.Value() }

// SuccessfulConnections returns the monotonic successful-connection count.
func (b *Backend) SuccessfulConnections() int64 { return b.successfulConns.Value() }

// FailedConnections returns the monotonic failed-connection count.
func (b *Backend) FailedConnections() int64 { return b.failedConns.Value() }

// AvgResponseTime returns the running mean response latency.
func (b *Backend) AvgResponseTime() time.Duration { return b.avgResponseTime.Value() }

// IsAlive reports whether the backend is considered reachable. This
// spec carries no static health checker, so IsAlive only reflects the
// outcome of actual proxied traffic, as last recorded by EndConnection.
func (b *Backend) IsAlive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isAlive
}

// LastResponseTime returns the duration of the most recently completed
// request or connection against this backend.
func (b *Backend) LastResponseTime() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastResponseTime
}

// BeginConnection records the start of a new connection/request
// attempt against this backend: bumps the live and lifetime counters
// and stamps last-request time.
func (b *Backend) BeginConnection() {
	b.connections.Inc()
	b.totalConnections.Inc()
	b.mu.Lock()
	b.lastRequestTime = time.Now()
	b.mu.Unlock()
}

// EndConnection records the completion of one connection/request:
// decrements the live gauge, records success/failure and response
// latency. Never called while holding any lock that's also held
// across I/O — counter arithmetic here is the only thing under mu.
func (b *Backend) EndConnection(success bool, latency time.Duration) {
	b.connections.Dec()
	if success {
		b.successfulConns.Inc()
	} else {
		b.failedConns.Inc()
	}
	b.avgResponseTime.Record(latency)

	b.mu.Lock()
	b.lastResponseTime = latency
	b.isAlive = success
	b.mu.Unlock()
}

// Pool is an ordered, fixed sequence of backends addressed by stable
// index [0, N). It is read-only after NewPool returns: backend
// *contents* mutate under each Backend's own lock, but the slice
// itself, and which backends are in it, never changes for the process
// lifetime.
type Pool struct {
	backends []*Backend
}

// NewPool builds a Pool from an ordered list of backends. The list
// must be non-empty for any scheduler to make progress, but an empty
// pool is a legal (if useless) Pool — emptiness is surfaced later, at
// pick time, as scheduler.ErrEmptyPool.
func NewPool(backends ...*Backend) *Pool {
	cp := make([]*Backend, len(backends))
	copy(cp, backends)
	return &Pool{backends: cp}
}

// Len returns the number of backends in the pool.
func (p *Pool) Len() int { return len(p.backends) }

// At returns the backend at index i. It panics on an out-of-range
// index; callers (schedulers) are expected to only ever index with
// values derived from Len().
func (p *Pool) At(i int) *Backend { return p.backends[i] }

// All returns the pool's backends in order. The returned slice must
// not be mutated by the caller.
func (p *Pool) All() []*Backend { return p.backends }
