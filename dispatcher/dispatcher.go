// Package dispatcher serializes backend selection behind one lock,
// shared by every accept loop and retry attempt.
package dispatcher

import (
	"errors"
	"sync"

	"github.com/pushkar-gr/deston/backend"
	"github.com/pushkar-gr/deston/scheduler"
)

// ErrNoBackend is returned when the scheduler could not produce a
// backend (today, only on an empty pool). Connections hitting this
// are dropped (L4) or answered 502 (L7); the listener keeps running.
var ErrNoBackend = errors.New("dispatcher: no backend available")

// Dispatcher holds the pool, the chosen scheduler and the index of the
// last successful pick behind one exclusive lock. Per spec.md §4.2 and
// §9, this lock is intentionally coarse — it is never held across I/O,
// but it is one lock, not a pool lock plus a separate scheduler lock.
type Dispatcher struct {
	mu              sync.Mutex
	pool            *backend.Pool
	scheduler       scheduler.Scheduler
	lastPickedIndex int
}

// New builds a Dispatcher over the given pool and scheduler.
func New(pool *backend.Pool, sched scheduler.Scheduler) *Dispatcher {
	return &Dispatcher{pool: pool, scheduler: sched}
}

// Choose picks a backend for clientAddr, recording the index on
// success. The lock is held only for the scheduler call and the index
// write — never across any network I/O.
func (d *Dispatcher) Choose(clientAddr string) (*backend.Backend, error) {
	d.mu.Lock()
	idx, b, err := d.scheduler.Pick(d.pool, clientAddr)
	if err != nil {
		d.mu.Unlock()
		return nil, errors.Join(ErrNoBackend, err)
	}
	d.lastPickedIndex = idx
	d.mu.Unlock()
	return b, nil
}

// LastPickedIndex returns the index written by the most recent
// successful Choose call.
func (d *Dispatcher) LastPickedIndex() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastPickedIndex
}

// Pool returns the backend pool this dispatcher serves, so proxies can
// size their retry budget (pool.Len()) without reaching past the
// dispatcher's lock.
func (d *Dispatcher) Pool() *backend.Pool { return d.pool }
