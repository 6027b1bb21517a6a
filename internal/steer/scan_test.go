package steer_test

import (
	"testing"

	"github.com/dantte-lp/steerd/internal/steer"
)

func TestScanCoordinatorRegisterRequesterCapsAt32(t *testing.T) {
	t.Parallel()
	c := steer.NewScanCoordinator()
	for i := 0; i < 32; i++ {
		if r := c.RegisterRequester("r", nil); r == nil {
			t.Fatalf("expected requester %d to register", i)
		}
	}
	if r := c.RegisterRequester("overflow", nil); r != nil {
		t.Fatalf("expected 33rd requester to be rejected")
	}
}

func TestScanListAddDedupesByModeOpClassChannel(t *testing.T) {
	t.Parallel()
	c := steer.NewScanCoordinator()
	r := c.RegisterRequester("a", nil)
	node := loadNode("n", 0, 0, 0, 5180)
	node.Channel = 36

	si := &steer.StaInfo{Node: node}
	caps := steer.BeaconCapabilities{Passive: true}

	si.Scan.ListAddTable(steer.BeaconCapabilities{Table: true}, r)
	si.Scan.ListAddTable(steer.BeaconCapabilities{Table: true}, r)
	if got := si.Scan.QueueLen(); got != 1 {
		t.Fatalf("expected dedup to keep queue at 1, got %d", got)
	}
	_ = caps
}

func TestScanNotifyOnLastJobPopped(t *testing.T) {
	t.Parallel()
	c := steer.NewScanCoordinator()
	notified := make(map[string]bool)
	r1 := c.RegisterRequester("r1", func(si *steer.StaInfo) { notified["r1"] = true })
	r2 := c.RegisterRequester("r2", func(si *steer.StaInfo) { notified["r2"] = true })

	node := loadNode("n", 0, 0, 0, 5180)
	si := &steer.StaInfo{Node: node}

	si.Scan.ListAddTable(steer.BeaconCapabilities{Table: true}, r1)
	si.Scan.ListAddTable(steer.BeaconCapabilities{Table: true}, r2)

	if si.Scan.QueueLen() != 1 {
		t.Fatalf("expected one deduped job with both requesters, got %d jobs", si.Scan.QueueLen())
	}

	eng := testEngine()
	eng.Registry.UpsertNode("n", steer.NodeLocal, 0)
	c.Next(eng, si)

	if !notified["r1"] || !notified["r2"] {
		t.Fatalf("expected both requesters notified on last job popped, got %v", notified)
	}
}
