// Package metrics provides the small set of counters backends expose.
//
// This is deliberately not a metrics-export surface: there is no
// Prometheus handler and no admin endpoint here. Every type in this
// package exists to back one of the observable fields on a
// backend.Backend (connections, total_connections, avg_response_time,
// ...); nothing more.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a monotonically increasing int64 counter, safe for
// concurrent use without an external lock.
type Counter struct{ v atomic.Int64 }

// Inc increments the counter by one.
func (c *Counter) Inc() { c.v.Add(1) }

// Add increments the counter by n.
func (c *Counter) Add(n int64) { c.v.Add(n) }

// Value returns the current counter value.
func (c *Counter) Value() int64 { return c.v.Load() }

// Gauge is a counter that can move in either direction, used for the
// live in-flight connection count.
type Gauge struct{ v atomic.Int64 }

// Inc increments the gauge by one.
func (g *Gauge) Inc() { g.v.Add(1) }

// Dec decrements the gauge by one.
func (g *Gauge) Dec() { g.v.Add(-1) }

// Value returns the current gauge value.
func (g *Gauge) Value() int64 { return g.v.Load() }

// RunningAverage maintains a mean duration across an unbounded number
// of samples without retaining the samples themselves.
type RunningAverage struct {
	mu    sync.Mutex
	count int64
	sum   time.Duration
}

// Record folds one duration sample into the running mean.
func (r *RunningAverage) Record(d time.Duration) {
	r.mu.Lock()
	r.count++
	r.sum += d
	r.mu.Unlock()
}

// Value returns the current mean, or zero if no samples were recorded.
func (r *RunningAverage) Value() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		return 0
	}
	return r.sum / time.Duration(r.count)
}
