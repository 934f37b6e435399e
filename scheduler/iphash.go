package scheduler

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/pushkar-gr/deston/backend"
)

// IPHash is stateless: the same rendered client address always maps
// to the same index. Note the key is "host:port" including the
// ephemeral port, so this maps per-connection, not per-client-IP —
// see spec.md §9's Open Question 2. Callers wanting IP-only stickiness
// must strip the port before it reaches Dispatcher.Choose.
type IPHash struct{}

// NewIPHash returns an IPHash scheduler. It carries no state.
func NewIPHash() *IPHash {
	return &IPHash{}
}

func (IPHash) Name() string { return AlgorithmIPHash }

// Pick hashes clientAddr with SHA-256, takes the first 8 bytes as a
// big-endian uint64, and reduces mod N.
func (h IPHash) Pick(pool *backend.Pool, clientAddr string) (int, *backend.Backend, error) {
	n := pool.Len()
	if n == 0 {
		return 0, nil, &PickError{Algorithm: h.Name(), Err: ErrEmptyPool}
	}
	digest := sha256.Sum256([]byte(clientAddr))
	idx := int(binary.BigEndian.Uint64(digest[:8]) % uint64(n))
	return idx, pool.At(idx), nil
}
