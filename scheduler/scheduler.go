// Package scheduler implements the pluggable backend-selection
// algorithms: round-robin, weighted round-robin and IP-hash.
//
// A Scheduler's Pick must be callable under an exclusive lock without
// blocking on I/O — every implementation here does nothing but touch
// its own in-memory state and read pool length/weight, matching that
// contract. The dispatcher, not the scheduler, owns the lock.
package scheduler

import (
	"errors"
	"fmt"

	"github.com/pushkar-gr/deston/backend"
)

// ErrEmptyPool is returned when Pick is called against a pool with no
// backends. Fatal for that call, not for the process.
var ErrEmptyPool = errors.New("scheduler: pool is empty")

// ErrIndexArithmetic corresponds to the source's byte-slice-to-integer
// conversion failure in IP-hash. In this port the digest is always a
// fixed 32-byte SHA-256 output, and the first 8 bytes are read with
// binary.BigEndian.Uint64 on a slice whose length is checked by the
// type system, not at runtime — so this error is structurally
// unreachable here. It's kept as a named sentinel only so the
// Scheduler interface's error set matches the spec's failure taxonomy.
var ErrIndexArithmetic = errors.New("scheduler: index arithmetic failed")

// PickError wraps a scheduler failure with the algorithm that produced it.
type PickError struct {
	Algorithm string
	Err       error
}

func (e *PickError) Error() string {
	return fmt.Sprintf("scheduler(%s): %v", e.Algorithm, e.Err)
}

func (e *PickError) Unwrap() error { return e.Err }

// Scheduler picks one backend from a pool given the client's address.
// ClientAddr is the rendered "host:port" of the client connection,
// including the ephemeral port — see IPHash for why that matters.
type Scheduler interface {
	// Pick returns the chosen backend's index and handle, or a
	// *PickError wrapping ErrEmptyPool/ErrIndexArithmetic.
	Pick(pool *backend.Pool, clientAddr string) (int, *backend.Backend, error)

	// Name identifies the algorithm, used for logging and error wrapping.
	Name() string
}

// Algorithm names as accepted (case-insensitively) in configuration.
const (
	AlgorithmRoundRobin         = "roundrobin"
	AlgorithmWeightedRoundRobin = "weightedroundrobin"
	AlgorithmIPHash             = "iphashing"
)

// New constructs the Scheduler named by algorithm. Unknown names fall
// back to round-robin, per spec.md §6's `[load_balancer] algorithm`
// contract — config.Load is responsible for normalizing aliases like
// "round_robin"/"ip_hashing" down to the canonical names above before
// calling New.
func New(algorithm string) Scheduler {
	switch algorithm {
	case AlgorithmWeightedRoundRobin:
		return NewWeightedRoundRobin()
	case AlgorithmIPHash:
		return NewIPHash()
	default:
		return NewRoundRobin()
	}
}
