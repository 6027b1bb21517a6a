package steer_test

import (
	"bytes"
	"testing"

	"github.com/dantte-lp/steerd/internal/steer"
	"github.com/dantte-lp/steerd/internal/tlv"
)

func TestRRMNeighborReportRejectsMissingTemplate(t *testing.T) {
	t.Parallel()
	cfg := steer.DefaultConfig()
	cur := loadNode("cur", 0, 0, 0, 5180)
	other := loadNode("other", 0, 0, 0, 5180)

	_, err := steer.RRMNeighborReport(&cfg, cur, other, nil)
	if err == nil {
		t.Fatalf("expected error for node without a neighbor-report template")
	}
}

func TestRRMNeighborReportOverlaysPreference(t *testing.T) {
	t.Parallel()
	cfg := steer.DefaultConfig()
	cfg.NRPriorityInterval = 10

	cur := loadNode("cur", 0, 0, 0, 5180)
	other := loadNode("other", 40, 0, 0, 5180)
	other.NRTemplate = make([]byte, tlv.NRPrefixLen+4)
	_ = tlv.BuildPrefix(other.NRTemplate, [6]byte{1, 2, 3, 4, 5, 6}, [4]byte{}, 1, 36, 0)

	out, err := steer.RRMNeighborReport(&cfg, cur, other, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pref, err := tlv.NRGetSubelement(out, tlv.PreferenceSubelement)
	if err != nil {
		t.Fatalf("expected preference subelement present: %v", err)
	}
	if len(pref) != 1 {
		t.Fatalf("expected 1-byte preference value, got %d bytes", len(pref))
	}
	// load 40, interval 10 -> penalty 40; base 128 plus the 5GHz bonus of 1
	// (other.FreqMHz > 4000): 128+1-40=89
	if pref[0] != 89 {
		t.Fatalf("expected priority 89, got %d", pref[0])
	}

	if !bytes.Equal(out[:tlv.NRPrefixLen], other.NRTemplate[:tlv.NRPrefixLen]) {
		t.Fatalf("expected fixed prefix left untouched")
	}
}
