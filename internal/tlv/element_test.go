package tlv_test

import (
	"errors"
	"testing"

	"pgregory.net/rapid"

	"github.com/dantte-lp/steerd/internal/tlv"
)

func TestListLenEmpty(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 16)
	got, err := tlv.ListLen(buf)
	if err != nil {
		t.Fatalf("ListLen: %v", err)
	}
	if got != 0 {
		t.Fatalf("ListLen = %d, want 0", got)
	}
}

func TestListLenSingleElement(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 16)
	buf[0] = 3   // tag
	buf[1] = 2   // length
	buf[2] = 0xAA
	buf[3] = 0xBB

	got, err := tlv.ListLen(buf)
	if err != nil {
		t.Fatalf("ListLen: %v", err)
	}
	if got != 4 {
		t.Fatalf("ListLen = %d, want 4", got)
	}
}

func TestListLenTrailingGarbageInvalid(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 16)
	buf[0] = 3
	buf[1] = 2
	buf[2] = 0xAA
	buf[3] = 0xBB
	buf[15] = 1 // non-zero padding

	if _, err := tlv.ListLen(buf); !errors.Is(err, tlv.ErrListInvalid) {
		t.Fatalf("ListLen error = %v, want ErrListInvalid", err)
	}
}

func TestListLenZeroLengthElementInvalid(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 16)
	buf[0] = 3
	buf[1] = 0 // zero-length element is never valid

	if _, err := tlv.ListLen(buf); !errors.Is(err, tlv.ErrListInvalid) {
		t.Fatalf("ListLen error = %v, want ErrListInvalid", err)
	}
}

func TestSetElementThenGet(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 16)
	if err := tlv.SetElement(buf, 5, []byte{1, 2, 3}); err != nil {
		t.Fatalf("SetElement: %v", err)
	}

	got, err := tlv.GetElement(buf, 5)
	if err != nil {
		t.Fatalf("GetElement: %v", err)
	}
	if string(got) != "\x01\x02\x03" {
		t.Fatalf("GetElement = %v, want [1 2 3]", got)
	}
}

func TestSetElementUpsertReplacesValue(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 16)
	if err := tlv.SetElement(buf, 5, []byte{1, 2, 3}); err != nil {
		t.Fatalf("SetElement: %v", err)
	}
	if err := tlv.SetElement(buf, 5, []byte{9, 9}); err != nil {
		t.Fatalf("SetElement (replace): %v", err)
	}

	got, err := tlv.GetElement(buf, 5)
	if err != nil {
		t.Fatalf("GetElement: %v", err)
	}
	if string(got) != "\x09\x09" {
		t.Fatalf("GetElement = %v, want [9 9]", got)
	}

	listLen, err := tlv.ListLen(buf)
	if err != nil {
		t.Fatalf("ListLen: %v", err)
	}
	if listLen != 4 {
		t.Fatalf("ListLen = %d, want 4 (single shrunk element)", listLen)
	}
}

func TestSetElementNoSpace(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 4)
	if err := tlv.SetElement(buf, 1, []byte{1, 2, 3, 4, 5}); !errors.Is(err, tlv.ErrNoSpace) {
		t.Fatalf("SetElement error = %v, want ErrNoSpace", err)
	}
}

func TestRemoveElementShiftsTailAndZeroFills(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 16)
	if err := tlv.SetElement(buf, 1, []byte{0xAA}); err != nil {
		t.Fatalf("SetElement 1: %v", err)
	}
	if err := tlv.SetElement(buf, 2, []byte{0xBB}); err != nil {
		t.Fatalf("SetElement 2: %v", err)
	}

	if err := tlv.RemoveElement(buf, 1); err != nil {
		t.Fatalf("RemoveElement: %v", err)
	}

	got, err := tlv.GetElement(buf, 2)
	if err != nil {
		t.Fatalf("GetElement after remove: %v", err)
	}
	if string(got) != "\xbb" {
		t.Fatalf("GetElement = %v, want [0xbb]", got)
	}
	if _, err := tlv.FindElement(buf, 1); !errors.Is(err, tlv.ErrElementNotFound) {
		t.Fatalf("FindElement(1) error = %v, want ErrElementNotFound", err)
	}

	listLen, err := tlv.ListLen(buf)
	if err != nil {
		t.Fatalf("ListLen: %v", err)
	}
	for _, b := range buf[listLen:] {
		if b != 0 {
			t.Fatalf("tail not zero-filled after remove: %v", buf)
		}
	}
}

// TestSetElementRoundTripProperty checks that writing a sequence of distinct
// tagged elements into a buffer, then reading each one back, always
// reproduces the value bytes exactly and always leaves the list valid.
func TestSetElementRoundTripProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		buf := make([]byte, 253)
		n := rapid.IntRange(1, 20).Draw(rt, "n")

		tags := rapid.Permutation(rapid.SliceOfN(rapid.Uint8(), n, n).Draw(rt, "tagPool")).Draw(rt, "tagOrder")
		values := make(map[byte][]byte, n)

		for _, tag := range tags {
			l := rapid.IntRange(1, 10).Draw(rt, "valLen")
			val := rapid.SliceOfN(rapid.Byte(), l, l).Draw(rt, "val")
			if err := tlv.SetElement(buf, tag, val); err != nil {
				if errors.Is(err, tlv.ErrNoSpace) {
					continue
				}
				rt.Fatalf("SetElement(%d): %v", tag, err)
			}
			values[tag] = val
		}

		if !tlv.ListValid(buf) {
			rt.Fatalf("list invalid after writes: %v", buf)
		}

		for tag, want := range values {
			got, err := tlv.GetElement(buf, tag)
			if err != nil {
				rt.Fatalf("GetElement(%d): %v", tag, err)
			}
			if len(got) != len(want) {
				rt.Fatalf("GetElement(%d) len = %d, want %d", tag, len(got), len(want))
			}
			for i := range got {
				if got[i] != want[i] {
					rt.Fatalf("GetElement(%d)[%d] = %d, want %d", tag, i, got[i], want[i])
				}
			}
		}
	})
}

// TestRemoveElementIdempotence checks that removing an element twice in a
// row is equivalent to removing it once (the second call is a no-op).
func TestRemoveElementIdempotence(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		buf := make([]byte, 64)
		tag := rapid.Byte().Draw(rt, "tag")
		val := rapid.SliceOfN(rapid.Byte(), 1, 10).Draw(rt, "val")

		if err := tlv.SetElement(buf, tag, val); err != nil {
			rt.Fatalf("SetElement: %v", err)
		}

		if err := tlv.RemoveElement(buf, tag); err != nil {
			rt.Fatalf("RemoveElement (first): %v", err)
		}
		after1 := append([]byte(nil), buf...)

		if err := tlv.RemoveElement(buf, tag); err != nil {
			rt.Fatalf("RemoveElement (second): %v", err)
		}

		for i := range buf {
			if buf[i] != after1[i] {
				rt.Fatalf("second RemoveElement changed buffer at %d: %d != %d", i, buf[i], after1[i])
			}
		}
	})
}
