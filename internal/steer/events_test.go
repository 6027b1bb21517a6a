package steer_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/dantte-lp/steerd/internal/steer"
)

func TestReasonString(t *testing.T) {
	t.Parallel()
	r := steer.ReasonSignal | steer.ReasonLoad
	got := r.String()
	if !strings.Contains(got, "signal") || !strings.Contains(got, "load") {
		t.Fatalf("expected both reasons present, got %q", got)
	}
}

func TestReasonHas(t *testing.T) {
	t.Parallel()
	r := steer.ReasonNumAssoc | steer.ReasonSignal
	if !r.Has(steer.ReasonSignal) {
		t.Fatalf("expected Has to detect the set bit")
	}
	if r.Has(steer.ReasonLoad) {
		t.Fatalf("expected Has to reject an unset bit")
	}
}

func TestSlogSinkEmitsStructuredLine(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	sink := steer.NewSlogSink(slog.New(slog.NewTextHandler(&buf, nil)))

	sink.Emit(steer.Event{Kind: steer.EvAdmissionDeny, Reason: "low_signal"})

	if !strings.Contains(buf.String(), "admission_deny") {
		t.Fatalf("expected event kind in log output, got %q", buf.String())
	}
}
