package scheduler_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushkar-gr/deston/backend"
	"github.com/pushkar-gr/deston/scheduler"
)

// S4: same rendered address picked twice yields the same index, < N.
func TestIPHash_S4(t *testing.T) {
	h := scheduler.NewIPHash()
	pool := poolOf(3)

	idx1, _, err := h.Pick(pool, "127.0.0.1:5000")
	require.NoError(t, err)
	idx2, _, err := h.Pick(pool, "127.0.0.1:5000")
	require.NoError(t, err)

	assert.Equal(t, idx1, idx2)
	assert.Less(t, idx1, 3)
}

// S5: 10 distinct addresses over a pool of 3 should not all collide
// to the same index.
func TestIPHash_S5(t *testing.T) {
	h := scheduler.NewIPHash()
	pool := poolOf(3)

	seen := map[int]bool{}
	for port := 5000; port < 5010; port++ {
		idx, _, err := h.Pick(pool, fmt.Sprintf("127.0.0.1:%d", port))
		require.NoError(t, err)
		seen[idx] = true
	}
	assert.Greater(t, len(seen), 1, "expected IP-hash to spread across more than one backend")
}

// Invariant 3 & 4: pure function of the address, always in range.
func TestIPHash_PureAndInRange(t *testing.T) {
	h := scheduler.NewIPHash()
	pool := poolOf(5)

	for i := 0; i < 50; i++ {
		addr := fmt.Sprintf("10.0.0.%d:443", i)
		idx1, _, err := h.Pick(pool, addr)
		require.NoError(t, err)
		idx2, _, err := h.Pick(pool, addr)
		require.NoError(t, err)
		assert.Equal(t, idx1, idx2)
		assert.GreaterOrEqual(t, idx1, 0)
		assert.Less(t, idx1, 5)
	}
}

func TestIPHash_EmptyPool(t *testing.T) {
	h := scheduler.NewIPHash()
	_, _, err := h.Pick(backend.NewPool(), "c")
	require.Error(t, err)
	assert.ErrorIs(t, err, scheduler.ErrEmptyPool)
}
