package dispatcher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushkar-gr/deston/backend"
	"github.com/pushkar-gr/deston/dispatcher"
	"github.com/pushkar-gr/deston/scheduler"
)

func TestDispatcher_LastPickedIndexMatchesChoose(t *testing.T) {
	pool := backend.NewPool(
		backend.New("127.0.0.1", 3000, 1000, 1),
		backend.New("127.0.0.1", 3001, 1000, 1),
		backend.New("127.0.0.1", 3002, 1000, 1),
	)
	d := dispatcher.New(pool, scheduler.NewRoundRobin())

	for i := 0; i < 10; i++ {
		b, err := d.Choose("client:1")
		require.NoError(t, err)
		require.NotNil(t, b)

		// The dispatcher's recorded index must reflect the backend it
		// just handed back.
		idx := d.LastPickedIndex()
		assert.Same(t, pool.At(idx), b)
	}
}

func TestDispatcher_NoBackendOnEmptyPool(t *testing.T) {
	d := dispatcher.New(backend.NewPool(), scheduler.NewRoundRobin())
	_, err := d.Choose("client:1")
	require.Error(t, err)
	assert.ErrorIs(t, err, dispatcher.ErrNoBackend)
}
