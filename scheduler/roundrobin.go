package scheduler

import "github.com/pushkar-gr/deston/backend"

// RoundRobin cycles through the pool in index order. State is a
// single cursor; over any window of k*N consecutive picks each index
// appears exactly k times.
type RoundRobin struct {
	cursor uint
}

// NewRoundRobin returns a RoundRobin starting at index 0.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

func (r *RoundRobin) Name() string { return AlgorithmRoundRobin }

// Pick returns pool[cursor], then advances cursor mod N.
func (r *RoundRobin) Pick(pool *backend.Pool, _ string) (int, *backend.Backend, error) {
	n := pool.Len()
	if n == 0 {
		return 0, nil, &PickError{Algorithm: r.Name(), Err: ErrEmptyPool}
	}
	idx := int(r.cursor) % n
	r.cursor = (r.cursor + 1) % uint(n)
	return idx, pool.At(idx), nil
}
