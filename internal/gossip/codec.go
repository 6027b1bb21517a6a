package gossip

import (
	"encoding/json"
	"fmt"
)

// MessageKind discriminates the payload carried by an Envelope, since the
// wire format is one newline-framed JSON object per message rather than a
// self-describing union type.
type MessageKind string

const (
	KindNodeUpdate     MessageKind = "node_update"
	KindStaObservation MessageKind = "sta_observation"
)

// NodeUpdate is a periodic summary of one locally owned AP, gossiped so
// every other host in the mesh can seed a remote Node record (spec.md
// §2's "node: created ... at first gossip message").
type NodeUpdate struct {
	NodeKey  string `json:"node_key"`
	SSID     string `json:"ssid"`
	FreqMHz  int    `json:"freq_mhz"`
	Channel  uint8  `json:"channel"`
	OpClass  uint8  `json:"op_class"`
	Noise    int    `json:"noise"`
	NAssoc   int    `json:"n_assoc"`
	MaxAssoc int    `json:"max_assoc"`
	Load     int    `json:"load"`
	Disabled bool   `json:"disabled"`

	// SentAtUnixMilli is the sender's wall-clock send time. The receiving
	// EngineAdapter does not read it.
	SentAtUnixMilli int64 `json:"sent_at_unix_milli"`
}

// StaObservation is a per-station signal sighting at a node, gossiped so
// a steering decision on one host can consider a station's signal at a
// neighboring host's AP without waiting for the station to roam there
// first (spec.md §2's per-STA observations).
type StaObservation struct {
	NodeKey    string `json:"node_key"`
	StationMAC string `json:"station_mac"`
	RCPI       int    `json:"rcpi"`
	RSNI       int    `json:"rsni"`

	SentAtUnixMilli int64 `json:"sent_at_unix_milli"`
}

// Envelope is the one JSON object sent per line on the wire.
type Envelope struct {
	Kind    MessageKind     `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeNodeUpdate wraps msg into an envelope and marshals it, appending
// no trailing newline — Transport.Send adds the frame delimiter.
func EncodeNodeUpdate(msg NodeUpdate) ([]byte, error) {
	return encodeEnvelope(KindNodeUpdate, msg)
}

// EncodeStaObservation wraps msg into an envelope and marshals it.
func EncodeStaObservation(msg StaObservation) ([]byte, error) {
	return encodeEnvelope(KindStaObservation, msg)
}

func encodeEnvelope(kind MessageKind, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gossip: marshal %s payload: %w", kind, err)
	}
	return json.Marshal(Envelope{Kind: kind, Payload: raw})
}

// Decode parses one wire frame back into its envelope and typed payload.
// The caller switches on env.Kind to know which Decode* to call next.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("gossip: unmarshal envelope: %w", err)
	}
	return env, nil
}

// DecodeNodeUpdate parses env's payload as a NodeUpdate. The caller must
// have already checked env.Kind == KindNodeUpdate.
func (env Envelope) DecodeNodeUpdate() (NodeUpdate, error) {
	var msg NodeUpdate
	if err := json.Unmarshal(env.Payload, &msg); err != nil {
		return NodeUpdate{}, fmt.Errorf("gossip: unmarshal node_update: %w", err)
	}
	return msg, nil
}

// DecodeStaObservation parses env's payload as a StaObservation.
func (env Envelope) DecodeStaObservation() (StaObservation, error) {
	var msg StaObservation
	if err := json.Unmarshal(env.Payload, &msg); err != nil {
		return StaObservation{}, fmt.Errorf("gossip: unmarshal sta_observation: %w", err)
	}
	return msg, nil
}
