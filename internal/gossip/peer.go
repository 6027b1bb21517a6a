package gossip

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
)

// ErrIDExhausted indicates NewInstanceID could not find a nonzero random
// value after maxIDAttempts tries. Should never occur in practice given
// the 64-bit random space.
var ErrIDExhausted = errors.New("gossip: instance id allocator exhausted")

// InstanceID identifies one running steerd process on the gossip mesh.
// Every outbound message carries the sender's InstanceID so a receiver can
// drop its own multicast loopback without depending on OS-level loopback
// suppression, which isn't available on every platform/interface
// combination.
type InstanceID uint64

// NewInstanceID generates a random nonzero InstanceID, mirroring the
// teacher's DiscriminatorAllocator's "random, unique, nonzero" derivation
// for BFD session discriminators.
func NewInstanceID() (InstanceID, error) {
	var buf [8]byte
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("gossip: generate instance id: %w", err)
		}
		id := InstanceID(binary.BigEndian.Uint64(buf[:]))
		if id != 0 {
			return id, nil
		}
	}
	return 0, fmt.Errorf("gossip: generate instance id: %w", ErrIDExhausted)
}

const maxIDAttempts = 100

// PeerTracker records the last-seen time of every other instance this
// process has heard from, purely for operator visibility (the steering
// core's own remote_node_timeout handles per-node staleness independently
// through Registry, see spec.md §2's lifecycle rules).
type PeerTracker struct {
	mu   sync.Mutex
	seen map[InstanceID]int64 // unix millis
}

// NewPeerTracker returns an empty tracker.
func NewPeerTracker() *PeerTracker {
	return &PeerTracker{seen: make(map[InstanceID]int64)}
}

// Observe records that peer was heard from at nowUnixMilli.
func (t *PeerTracker) Observe(peer InstanceID, nowUnixMilli int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen[peer] = nowUnixMilli
}

// Peers returns a snapshot of every known peer's last-seen time.
func (t *PeerTracker) Peers() map[InstanceID]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[InstanceID]int64, len(t.seen))
	for id, ts := range t.seen {
		out[id] = ts
	}
	return out
}
