package steer_test

import (
	"testing"

	"github.com/dantte-lp/steerd/internal/steer"
)

func TestRoamFSMStateString(t *testing.T) {
	t.Parallel()
	cases := map[steer.RoamFSMState]string{
		steer.RoamIdle:      "idle",
		steer.RoamScan:      "scan",
		steer.RoamSearching: "searching",
		steer.RoamScanDone:  "scan_done",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Fatalf("state %d: got %q want %q", state, got, want)
		}
	}
}

// TestRoamCheckSkipsStationsAboveThreshold is testable property #8's
// precondition: a station with strong signal is left in RoamIdle and
// never enters the scan/search pipeline.
func TestRoamCheckSkipsStationsAboveThreshold(t *testing.T) {
	t.Parallel()
	eng := testEngine()
	eng.Config.RoamTriggerSNR = 15

	node := eng.Registry.UpsertNode("ap1", steer.NodeLocal, 0)
	node.SSID = "corp"
	node.FreqMHz = 5180

	sta := eng.Registry.Station(steer.StationAddr{1, 2, 3, 4, 5, 6}, true)
	si := eng.Registry.StaInfoGet(sta, node, true, 0)
	si.Signal = -40 // well above any reasonable roam threshold
	si.CapBSSTransition = true

	eng.Tick(1000)

	if si.Roam.State != steer.RoamIdle {
		t.Fatalf("expected strong-signal station to stay idle, got %s", si.Roam.State)
	}
}

func TestRoamCheckActivatesWeakSignalStation(t *testing.T) {
	t.Parallel()
	eng := testEngine()
	eng.Config.RoamTriggerSNR = 15
	eng.Config.SteerRejectTimeout = 0

	node := eng.Registry.UpsertNode("ap1", steer.NodeLocal, 0)
	node.SSID = "corp"
	node.FreqMHz = 5180

	sta := eng.Registry.Station(steer.StationAddr{1, 2, 3, 4, 5, 6}, true)
	si := eng.Registry.StaInfoGet(sta, node, true, 0)
	si.Signal = -100 // noise default -95, so snr well below 15
	si.CapBSSTransition = true

	eng.Tick(1000)

	if si.Roam.State == steer.RoamIdle {
		t.Fatalf("expected weak-signal station to leave idle state")
	}
}
