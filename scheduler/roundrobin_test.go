package scheduler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushkar-gr/deston/backend"
	"github.com/pushkar-gr/deston/scheduler"
)

func poolOf(n int) *backend.Pool {
	backends := make([]*backend.Backend, n)
	for i := range backends {
		backends[i] = backend.New("127.0.0.1", 3000+i, 1000, 1)
	}
	return backend.NewPool(backends...)
}

// S1: RR, pool of 3, pick x4 -> 0,1,2,0
func TestRoundRobin_S1(t *testing.T) {
	r := scheduler.NewRoundRobin()
	pool := poolOf(3)

	var got []int
	for i := 0; i < 4; i++ {
		idx, b, err := r.Pick(pool, "client:1")
		require.NoError(t, err)
		require.NotNil(t, b)
		got = append(got, idx)
	}
	assert.Equal(t, []int{0, 1, 2, 0}, got)
}

// S2: RR, pool of 1, pick x2 -> 0,0
func TestRoundRobin_S2(t *testing.T) {
	r := scheduler.NewRoundRobin()
	pool := poolOf(1)

	idx1, _, err := r.Pick(pool, "c")
	require.NoError(t, err)
	idx2, _, err := r.Pick(pool, "c")
	require.NoError(t, err)
	assert.Equal(t, 0, idx1)
	assert.Equal(t, 0, idx2)
}

func TestRoundRobin_EmptyPool(t *testing.T) {
	r := scheduler.NewRoundRobin()
	_, _, err := r.Pick(backend.NewPool(), "c")
	require.Error(t, err)
	assert.ErrorIs(t, err, scheduler.ErrEmptyPool)
}

// Invariant 1: over 1,000,000 picks on a pool of N, each index's
// count is within one of the even split.
func TestRoundRobin_EvenDistribution(t *testing.T) {
	const picks = 1_000_000
	const n = 7
	r := scheduler.NewRoundRobin()
	pool := poolOf(n)

	counts := make([]int, n)
	for i := 0; i < picks; i++ {
		idx, _, err := r.Pick(pool, "c")
		require.NoError(t, err)
		counts[idx]++
	}

	lo := picks / n
	hi := (picks + n - 1) / n
	for idx, c := range counts {
		assert.True(t, c == lo || c == hi, "index %d got %d picks, want %d or %d", idx, c, lo, hi)
	}
}
