package steer_test

import (
	"testing"

	"github.com/dantte-lp/steerd/internal/steer"
)

func TestLoadKickResetsCounterBelowThreshold(t *testing.T) {
	t.Parallel()
	eng := testEngine()
	eng.Config.LoadKickEnabled = true
	eng.Config.LoadKickThreshold = 50
	eng.Config.LoadKickDelay = 1000
	eng.Config.LoadKickMinClients = 1

	node := eng.Registry.UpsertNode("ap1", steer.NodeLocal, 0)
	node.Load = 10
	node.LoadThrCount = 3

	eng.Tick(0)

	if node.LoadThrCount != 0 {
		t.Fatalf("expected load_thr_count reset once load drops below threshold, got %d", node.LoadThrCount)
	}
}
