package gossip_test

import (
	"testing"

	"github.com/dantte-lp/steerd/internal/gossip"
)

func TestNewInstanceIDIsNonzeroAndUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[gossip.InstanceID]bool)
	for i := 0; i < 100; i++ {
		id, err := gossip.NewInstanceID()
		if err != nil {
			t.Fatalf("NewInstanceID: %v", err)
		}
		if id == 0 {
			t.Fatalf("NewInstanceID returned zero")
		}
		if seen[id] {
			t.Fatalf("NewInstanceID returned a duplicate: %d", id)
		}
		seen[id] = true
	}
}

func TestPeerTrackerObserveAndSnapshot(t *testing.T) {
	t.Parallel()

	tr := gossip.NewPeerTracker()
	tr.Observe(gossip.InstanceID(1), 100)
	tr.Observe(gossip.InstanceID(2), 200)
	tr.Observe(gossip.InstanceID(1), 150) // refresh

	peers := tr.Peers()
	if len(peers) != 2 {
		t.Fatalf("expected 2 peers, got %d", len(peers))
	}
	if peers[gossip.InstanceID(1)] != 150 {
		t.Fatalf("expected peer 1's last-seen refreshed to 150, got %d", peers[gossip.InstanceID(1)])
	}
}
