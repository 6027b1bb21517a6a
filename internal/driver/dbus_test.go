package driver_test

import (
	"testing"

	"github.com/dantte-lp/steerd/internal/driver"
	"github.com/dantte-lp/steerd/internal/steer"
)

func TestFormatParseMACRoundTrip(t *testing.T) {
	t.Parallel()
	addr := steer.StationAddr{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}

	s := driver.FormatMAC(addr)
	got, err := driver.ParseMAC(s)
	if err != nil {
		t.Fatalf("ParseMAC(%q): %v", s, err)
	}
	if got != addr {
		t.Fatalf("round trip mismatch: got %v, want %v", got, addr)
	}
}

func TestParseMACRejectsMalformed(t *testing.T) {
	t.Parallel()
	cases := []string{
		"",
		"de:ad:be:ef:00",       // too few octets
		"not-a-mac-address!!",  // not hex
		"de:ad:be:ef:00:01:02", // too many octets
	}
	for _, s := range cases {
		if _, err := driver.ParseMAC(s); err == nil {
			t.Fatalf("ParseMAC(%q): expected error, got nil", s)
		}
	}
}

func TestDefaultObjectPathSanitizesBSSIDColons(t *testing.T) {
	t.Parallel()
	d, err := driver.NewForTest()
	if err != nil {
		t.Fatalf("NewForTest: %v", err)
	}
	got := d.DefaultObjectPath("aa:bb:cc:dd:ee:ff")
	want := "/org/steerd/hostapd1/aa_bb_cc_dd_ee_ff"
	if string(got) != want {
		t.Fatalf("got path %q, want %q", got, want)
	}
}
