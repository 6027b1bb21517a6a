// Package metrics exposes steerd's decision-core activity as Prometheus
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dantte-lp/steerd/internal/steer"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "steerd"
	subsystem = "steer"
)

// Label names for steering metrics.
const (
	labelKind     = "kind"
	labelNodeType = "node_type"
)

// -------------------------------------------------------------------------
// Collector — Prometheus steering metrics
// -------------------------------------------------------------------------

// Collector holds all steering-daemon Prometheus metrics.
//
//   - Nodes/Stations gauges track registry size, refreshed once per tick.
//   - Events counts every structured decision event the core emits,
//     labeled by kind (admission_accept, signal_kick, btm, ...).
//   - Gossip counters track transport send/receive volume.
type Collector struct {
	// Nodes tracks the number of known nodes, labeled local vs. remote.
	Nodes *prometheus.GaugeVec

	// Stations tracks the number of currently tracked stations.
	Stations prometheus.Gauge

	// Events counts every Event the decision core emits, labeled by kind.
	Events *prometheus.CounterVec

	// GossipSent counts envelopes successfully sent over the gossip transport.
	GossipSent *prometheus.CounterVec

	// GossipReceived counts envelopes successfully decoded off the gossip transport.
	GossipReceived *prometheus.CounterVec

	// GossipDropped counts envelopes dropped (malformed, unknown envelope kind,
	// unknown node reference).
	GossipDropped *prometheus.CounterVec
}

// NewCollector creates a Collector with all metrics registered against the
// provided prometheus.Registerer. If reg is nil, prometheus.DefaultRegisterer
// is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.Nodes,
		c.Stations,
		c.Events,
		c.GossipSent,
		c.GossipReceived,
		c.GossipDropped,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering them.
func newMetrics() *Collector {
	return &Collector{
		Nodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "nodes",
			Help:      "Number of known access points, labeled by node_type (local, remote).",
		}, []string{labelNodeType}),

		Stations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stations",
			Help:      "Number of currently tracked stations.",
		}),

		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_total",
			Help:      "Total structured decision events emitted, labeled by kind.",
		}, []string{labelKind}),

		GossipSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gossip",
			Name:      "envelopes_sent_total",
			Help:      "Total gossip envelopes sent, labeled by kind.",
		}, []string{labelKind}),

		GossipReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gossip",
			Name:      "envelopes_received_total",
			Help:      "Total gossip envelopes received and applied, labeled by kind.",
		}, []string{labelKind}),

		GossipDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gossip",
			Name:      "envelopes_dropped_total",
			Help:      "Total gossip envelopes dropped, labeled by reason.",
		}, []string{"reason"}),
	}
}

// -------------------------------------------------------------------------
// EventSink
// -------------------------------------------------------------------------

// Sink adapts a Collector into a steer.EventSink, so it can be passed
// directly to steer.NewEngine alongside (or instead of) a SlogSink.
type Sink struct {
	collector *Collector
}

// NewSink returns an EventSink that records every emitted Event against c.
func NewSink(c *Collector) *Sink {
	return &Sink{collector: c}
}

// Emit implements steer.EventSink.
func (s *Sink) Emit(ev steer.Event) {
	s.collector.Events.WithLabelValues(string(ev.Kind)).Inc()
}

// -------------------------------------------------------------------------
// Registry snapshot
// -------------------------------------------------------------------------

// ObserveRegistry refreshes the Nodes/Stations gauges from the current
// registry contents. Called once per Engine tick rather than wired as an
// event, since node/station counts are a level, not something that
// happens — a GaugeVec updated on every add/remove would need the same
// information restated in two places.
func (c *Collector) ObserveRegistry(reg *steer.Registry) {
	var local, remote int
	for _, n := range reg.Nodes() {
		if n.Type == steer.NodeLocal {
			local++
		} else {
			remote++
		}
	}
	c.Nodes.WithLabelValues("local").Set(float64(local))
	c.Nodes.WithLabelValues("remote").Set(float64(remote))

	c.Stations.Set(float64(len(reg.Stations())))
}

// -------------------------------------------------------------------------
// Gossip counters
// -------------------------------------------------------------------------

// IncGossipSent increments the sent-envelope counter for kind.
func (c *Collector) IncGossipSent(kind string) {
	c.GossipSent.WithLabelValues(kind).Inc()
}

// IncGossipReceived increments the received-envelope counter for kind.
func (c *Collector) IncGossipReceived(kind string) {
	c.GossipReceived.WithLabelValues(kind).Inc()
}

// IncGossipDropped increments the dropped-envelope counter for reason
// (e.g. "malformed", "unknown_kind", "unknown_node").
func (c *Collector) IncGossipDropped(reason string) {
	c.GossipDropped.WithLabelValues(reason).Inc()
}
