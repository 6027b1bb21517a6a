package gossip_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/dantte-lp/steerd/internal/gossip"
)

type collectingHandler struct {
	envelopes chan gossip.Envelope
}

func (h *collectingHandler) HandleEnvelope(env gossip.Envelope, _ *net.UDPAddr) {
	h.envelopes <- env
}

func TestTransportSendAndReceiveOverLoopbackMulticast(t *testing.T) {
	t.Parallel()

	cfg := gossip.Config{
		Group: net.ParseIP("239.10.10.10"),
		Port:  23999,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sender, err := gossip.Dial(cfg, gossip.InstanceID(1), logger)
	if err != nil {
		t.Skipf("multicast unavailable in this environment: %v", err)
	}
	defer sender.Close()

	receiver, err := gossip.Dial(cfg, gossip.InstanceID(2), logger)
	if err != nil {
		t.Skipf("multicast unavailable in this environment: %v", err)
	}
	defer receiver.Close()

	handler := &collectingHandler{envelopes: make(chan gossip.Envelope, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go receiver.Run(ctx, handler)

	msg := gossip.NodeUpdate{NodeKey: "aa:bb:cc:dd:ee:ff", SSID: "corp", FreqMHz: 5180}
	raw, err := gossip.EncodeNodeUpdate(msg)
	if err != nil {
		t.Fatalf("EncodeNodeUpdate: %v", err)
	}
	env, err := gossip.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if err := sender.Send(env); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-handler.envelopes:
		if got.Kind != gossip.KindNodeUpdate {
			t.Fatalf("kind = %q, want %q", got.Kind, gossip.KindNodeUpdate)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for gossiped envelope")
	}
}

func TestTransportSkipsOwnLoopback(t *testing.T) {
	t.Parallel()

	cfg := gossip.Config{
		Group: net.ParseIP("239.10.10.11"),
		Port:  23998,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	self := gossip.InstanceID(42)
	tr, err := gossip.Dial(cfg, self, logger)
	if err != nil {
		t.Skipf("multicast unavailable in this environment: %v", err)
	}
	defer tr.Close()

	handler := &collectingHandler{envelopes: make(chan gossip.Envelope, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx, handler)

	msg := gossip.NodeUpdate{NodeKey: "self"}
	raw, _ := gossip.EncodeNodeUpdate(msg)
	env, _ := gossip.Decode(raw)
	if err := tr.Send(env); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case <-handler.envelopes:
		t.Fatal("expected own loopback message to be filtered out")
	case <-time.After(300 * time.Millisecond):
		// expected: nothing arrives
	}
}
