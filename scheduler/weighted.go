package scheduler

import "github.com/pushkar-gr/deston/backend"

// WeightedRoundRobin selects backend i exactly weight[i] times per
// super-cycle (a run of length sum(weights)), with all selections of
// one backend contiguous within that super-cycle. Zero-weight backends
// would never be selected by this loop, and a pool of only zero weights
// would never let it return; none can occur, since config.Load turns a
// zero weight into 1 and rejects negative ones, and backend.New panics
// on a weight below 1.
type WeightedRoundRobin struct {
	index      int
	currWeight int
}

// NewWeightedRoundRobin returns a WeightedRoundRobin starting at
// index 0, weight counter 0.
func NewWeightedRoundRobin() *WeightedRoundRobin {
	return &WeightedRoundRobin{}
}

func (w *WeightedRoundRobin) Name() string { return AlgorithmWeightedRoundRobin }

// Pick runs the single-call weighted-selection loop from spec.md §4.1.2.
func (w *WeightedRoundRobin) Pick(pool *backend.Pool, _ string) (int, *backend.Backend, error) {
	n := pool.Len()
	if n == 0 {
		return 0, nil, &PickError{Algorithm: w.Name(), Err: ErrEmptyPool}
	}
	for {
		b := pool.At(w.index)
		if w.currWeight < b.Weight() {
			w.currWeight++
			return w.index, b, nil
		}
		w.currWeight = 0
		w.index = (w.index + 1) % n
	}
}
