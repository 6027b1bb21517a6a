package steer_test

import (
	"testing"

	"github.com/dantte-lp/steerd/internal/steer"
)

func TestCheckRequestAuthAlwaysAccepted(t *testing.T) {
	t.Parallel()
	eng := testEngine()
	node := eng.Registry.UpsertNode("ap1", steer.NodeLocal, 0)
	node.SSID = "corp"
	sta := eng.Registry.Station(steer.StationAddr{1}, true)
	si := eng.Registry.StaInfoGet(sta, node, true, 0)
	si.Signal = -95

	if !eng.CheckRequest(si, steer.EventAuth) {
		t.Fatalf("expected AUTH to always be accepted")
	}
}

func TestCheckRequestAssocDeniedBelowMinSNREvenWithSteeringOff(t *testing.T) {
	t.Parallel()
	eng := testEngine()
	eng.Config.MinSNR = 20
	eng.Config.AssocSteering = false

	node := eng.Registry.UpsertNode("ap1", steer.NodeLocal, 0)
	node.SSID = "corp"
	sta := eng.Registry.Station(steer.StationAddr{1}, true)
	si := eng.Registry.StaInfoGet(sta, node, true, 0)
	si.Signal = -94 // snr ~1, below MinSNR 20

	if eng.CheckRequest(si, steer.EventAssoc) {
		t.Fatalf("expected ASSOC below min_snr to be denied regardless of assoc_steering")
	}
}

func TestCheckRequestAssocAcceptedOutrightWhenSteeringDisabled(t *testing.T) {
	t.Parallel()
	eng := testEngine()
	eng.Config.MinSNR = 0
	eng.Config.AssocSteering = false

	node := eng.Registry.UpsertNode("ap1", steer.NodeLocal, 0)
	node.SSID = "corp"
	sta := eng.Registry.Station(steer.StationAddr{1}, true)
	si := eng.Registry.StaInfoGet(sta, node, true, 0)
	si.Signal = -80

	if !eng.CheckRequest(si, steer.EventAssoc) {
		t.Fatalf("expected ASSOC to accept outright when assoc_steering is disabled")
	}
}

// TestCheckRequestRetryExceededResetsCounter is testable property #9: with
// max_retry_band=2, two consecutive denials must occur before the third
// request is accepted outright.
func TestCheckRequestRetryExceededResetsCounter(t *testing.T) {
	t.Parallel()
	eng := testEngine()
	eng.Config.MaxRetryBand = 2
	eng.Config.ProbeSteering = true
	eng.Config.MinConnectSNR = 50

	node := eng.Registry.UpsertNode("ap1", steer.NodeLocal, 0)
	node.SSID = "corp"
	sta := eng.Registry.Station(steer.StationAddr{1}, true)
	si := eng.Registry.StaInfoGet(sta, node, true, 0)
	si.Signal = -80

	if eng.CheckRequest(si, steer.EventProbe) {
		t.Fatalf("expected first denial")
	}
	if eng.CheckRequest(si, steer.EventProbe) {
		t.Fatalf("expected second denial")
	}
	if si.Counters[steer.EventProbe].BlockedCur != 2 {
		t.Fatalf("BlockedCur = %d, want 2 after two consecutive denials", si.Counters[steer.EventProbe].BlockedCur)
	}
	if !eng.CheckRequest(si, steer.EventProbe) {
		t.Fatalf("expected max_retry_band to flip the third request to accept")
	}
	if si.Counters[steer.EventProbe].BlockedCur != 0 {
		t.Fatalf("expected blocked_cur reset after retry-exceeded accept")
	}
}
