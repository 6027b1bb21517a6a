package gossip

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/dantte-lp/steerd/internal/metrics"
	"github.com/dantte-lp/steerd/internal/steer"
)

// parseMAC parses a colon-separated hex MAC string into a station
// address. Kept local rather than shared with internal/driver: both
// packages independently need a six-octet hex parser and neither should
// import the other just to avoid ten lines of duplication.
func parseMAC(s string) (steer.StationAddr, error) {
	var addr steer.StationAddr
	const macLen = len("00:00:00:00:00:00")
	if len(s) != macLen {
		return addr, fmt.Errorf("gossip: parse mac %q: want %d characters, got %d", s, macLen, len(s))
	}
	n, err := fmt.Sscanf(s, "%02x:%02x:%02x:%02x:%02x:%02x",
		&addr[0], &addr[1], &addr[2], &addr[3], &addr[4], &addr[5])
	if err != nil {
		return addr, fmt.Errorf("gossip: parse mac %q: %w", s, err)
	}
	if n != 6 {
		return addr, fmt.Errorf("gossip: parse mac %q: got %d fields, want 6", s, n)
	}
	return addr, nil
}

// EngineAdapter implements Handler by applying decoded envelopes directly
// to a steer.Engine's registry, the same "decode then hand off to the
// single-threaded core" shape netio.Receiver uses for inbound BFD
// packets — except here the receiving side owns the translation from
// wire types to core types, since Handler's signature is gossip's own
// rather than the core's.
type EngineAdapter struct {
	Engine *steer.Engine
	Log    *slog.Logger

	// Metrics is optional; nil disables gossip counters.
	Metrics *metrics.Collector
}

// HandleEnvelope implements Handler.
func (a *EngineAdapter) HandleEnvelope(env Envelope, from *net.UDPAddr) {
	switch env.Kind {
	case KindNodeUpdate:
		msg, err := env.DecodeNodeUpdate()
		if err != nil {
			a.warn("bad node_update", "from", from, "err", err)
			a.dropped("malformed")
			return
		}
		a.applyNodeUpdate(msg)
		a.received(string(KindNodeUpdate))
	case KindStaObservation:
		msg, err := env.DecodeStaObservation()
		if err != nil {
			a.warn("bad sta_observation", "from", from, "err", err)
			a.dropped("malformed")
			return
		}
		a.applyStaObservation(msg)
	default:
		a.warn("unknown envelope kind", "kind", env.Kind, "from", from)
		a.dropped("unknown_kind")
	}
}

// applyNodeUpdate seeds or refreshes a Node record from gossip. A node
// first learned this way is created as NodeRemote; for a key that already
// exists, UpsertNode keeps the node's type (local included) and the
// gossiped radio and load fields overwrite the node's own.
func (a *EngineAdapter) applyNodeUpdate(msg NodeUpdate) {
	now := a.Engine.Now()
	node := a.Engine.Registry.UpsertNode(msg.NodeKey, steer.NodeRemote, now)
	node.SSID = msg.SSID
	node.FreqMHz = msg.FreqMHz
	node.Channel = msg.Channel
	node.OpClass = msg.OpClass
	node.Noise = msg.Noise
	node.NAssoc = msg.NAssoc
	node.MaxAssoc = msg.MaxAssoc
	node.Load = msg.Load
	node.Disabled = msg.Disabled
}

// applyStaObservation records a remote signal sighting as a measurement
// report, the same path a local beacon-report measurement takes, so
// scoring and candidate-list building treat both sources identically.
func (a *EngineAdapter) applyStaObservation(msg StaObservation) {
	addr, err := parseMAC(msg.StationMAC)
	if err != nil {
		a.warn("bad station mac", "mac", msg.StationMAC, "err", err)
		a.dropped("malformed")
		return
	}
	node, ok := a.Engine.Registry.Node(msg.NodeKey)
	if !ok {
		// The node summary hasn't arrived yet; drop the observation
		// rather than seed a bare placeholder node with no radio
		// parameters, per the "remote observations are hints" rule.
		a.dropped("unknown_node")
		return
	}
	sta := a.Engine.Registry.Station(addr, true)
	a.Engine.AddMeasurement(sta, node, msg.RCPI, msg.RSNI, a.Engine.Now())
	a.received(string(KindStaObservation))
}

func (a *EngineAdapter) warn(msg string, args ...any) {
	if a.Log == nil {
		return
	}
	a.Log.Warn(msg, args...)
}

func (a *EngineAdapter) received(kind string) {
	if a.Metrics == nil {
		return
	}
	a.Metrics.IncGossipReceived(kind)
}

func (a *EngineAdapter) dropped(reason string) {
	if a.Metrics == nil {
		return
	}
	a.Metrics.IncGossipDropped(reason)
}
