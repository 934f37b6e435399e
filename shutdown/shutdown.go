// Package shutdown implements the graceful-shutdown broadcast used by
// every accept loop: stop accepting, let in-flight work drain.
package shutdown

import "sync"

// Coordinator broadcasts a single true transition to anyone watching
// Done(). It never resets: once Signal is called, Done stays closed
// for the life of the process, same as the source's
// tokio::sync::watch::channel(false) that only ever moves to true.
type Coordinator struct {
	once sync.Once
	done chan struct{}
}

// New returns a Coordinator that has not yet signaled.
func New() *Coordinator {
	return &Coordinator{done: make(chan struct{})}
}

// Signal broadcasts the shutdown signal. Safe to call more than once
// or from more than one goroutine; only the first call has effect.
func (c *Coordinator) Signal() {
	c.once.Do(func() { close(c.done) })
}

// Done returns a channel that's closed once Signal has been called.
// Accept loops select on this alongside their listener's Accept to
// know when to stop — since a blocking Accept can't itself be part of
// a select, loops instead watch Done in a side goroutine and close
// their listener when it fires, which is what unblocks Accept.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// Signaled reports whether Signal has already been called, without
// blocking. Used by accept loops to distinguish a listener-closed
// error caused by shutdown from a genuine accept failure.
func (c *Coordinator) Signaled() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
