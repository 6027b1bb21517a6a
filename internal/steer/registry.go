package steer

import "sort"

// Registry is the process-wide catalog of known nodes and stations (C3). It
// does no locking of its own; Engine's Tick and entry points access it
// while holding Engine's mutex.
type Registry struct {
	nodes     map[string]*Node
	nodeOrder []string

	stations  map[StationAddr]*Station
	staOrder  []StationAddr
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes:    make(map[string]*Node),
		stations: make(map[StationAddr]*Station),
	}
}

// UpsertNode inserts a new node of type typ, or returns the existing one
// for key unchanged (its type is not updated).
func (r *Registry) UpsertNode(key string, typ NodeType, now Time) *Node {
	if n, ok := r.nodes[key]; ok {
		return n
	}
	n := newNode(key, typ, now)
	r.nodes[key] = n
	r.nodeOrder = append(r.nodeOrder, key)
	return n
}

// Node returns the node for key, if any.
func (r *Registry) Node(key string) (*Node, bool) {
	n, ok := r.nodes[key]
	return n, ok
}

// Nodes returns all nodes in stable insertion order.
func (r *Registry) Nodes() []*Node {
	out := make([]*Node, 0, len(r.nodeOrder))
	for _, k := range r.nodeOrder {
		if n, ok := r.nodes[k]; ok {
			out = append(out, n)
		}
	}
	return out
}

// LocalNodes returns all local nodes in stable insertion order.
func (r *Registry) LocalNodes() []*Node {
	var out []*Node
	for _, n := range r.Nodes() {
		if n.Type == NodeLocal {
			out = append(out, n)
		}
	}
	return out
}

// RemoveNode deletes a node and unlinks every sta_info, measurement, and
// candidate that referenced it, atomically from both sides (C3's cleanup
// contract and invariant #1 in spec.md §8).
func (r *Registry) RemoveNode(key string) {
	n, ok := r.nodes[key]
	if !ok {
		return
	}

	for addr, si := range n.staInfos {
		if sta, ok := r.stations[addr]; ok {
			delete(sta.infos, key)
			delete(sta.candidates, key)
			sta.measurements = filterMeasurements(sta.measurements, func(m *MeasurementReport) bool {
				return m.Node != n
			})
		}
		_ = si
	}

	delete(r.nodes, key)
	for i, k := range r.nodeOrder {
		if k == key {
			r.nodeOrder = append(r.nodeOrder[:i], r.nodeOrder[i+1:]...)
			break
		}
	}
}

// Station returns the station for addr, creating it if create is true and it
// does not yet exist.
func (r *Registry) Station(addr StationAddr, create bool) *Station {
	if s, ok := r.stations[addr]; ok {
		return s
	}
	if !create {
		return nil
	}
	s := newStation(addr)
	r.stations[addr] = s
	r.staOrder = append(r.staOrder, addr)
	return s
}

// Stations returns all stations in stable insertion order.
func (r *Registry) Stations() []*Station {
	out := make([]*Station, 0, len(r.staOrder))
	for _, a := range r.staOrder {
		if s, ok := r.stations[a]; ok {
			out = append(out, s)
		}
	}
	return out
}

// RemoveStation deletes a station and unlinks it from every node's
// staInfos index.
func (r *Registry) RemoveStation(addr StationAddr) {
	s, ok := r.stations[addr]
	if !ok {
		return
	}
	for key, si := range s.infos {
		if n, ok := r.nodes[key]; ok {
			delete(n.staInfos, addr)
		}
		_ = si
	}
	delete(r.stations, addr)
	for i, a := range r.staOrder {
		if a == addr {
			r.staOrder = append(r.staOrder[:i], r.staOrder[i+1:]...)
			break
		}
	}
}

// CleanupIfIdle removes a station once it has no remaining sta_info records
// (C3's "STA removed when all sta_info have expired" lifecycle rule).
func (r *Registry) CleanupIfIdle(addr StationAddr) {
	s, ok := r.stations[addr]
	if !ok {
		return
	}
	if len(s.infos) == 0 {
		r.RemoveStation(addr)
	}
}

// StaInfoGet returns the sta_info for (sta, node), creating and
// cross-linking it into both the station's and node's indexes if create is
// true and it does not yet exist.
func (r *Registry) StaInfoGet(sta *Station, node *Node, create bool, now Time) *StaInfo {
	if si, ok := sta.infos[node.Key]; ok {
		return si
	}
	if !create {
		return nil
	}
	si := newStaInfo(sta, node, now)
	sta.infos[node.Key] = si
	node.staInfos[sta.Addr] = si
	return si
}

// RemoveStaInfo unlinks a sta_info from both its station and node.
func (r *Registry) RemoveStaInfo(si *StaInfo) {
	delete(si.Sta.infos, si.Node.Key)
	delete(si.Node.staInfos, si.Sta.Addr)
}

// NextNeighbor returns the remote node that deterministically follows last
// in the registry's stable node order (nil ⇒ start from the first remote
// node), skipping ref itself and any disabled/excluded node. Returns
// (nil, false) once the enumeration is exhausted.
func (r *Registry) NextNeighbor(ref *Node, last *Node) (*Node, bool) {
	keys := append([]string(nil), r.nodeOrder...)
	sort.Strings(keys)

	startIdx := 0
	if last != nil {
		for i, k := range keys {
			if k == last.Key {
				startIdx = i + 1
				break
			}
		}
	}

	for i := startIdx; i < len(keys); i++ {
		n, ok := r.nodes[keys[i]]
		if !ok || n == ref || n.Disabled || n.Rating == RatingExclude {
			continue
		}
		return n, true
	}
	return nil, false
}

func filterMeasurements(in []*MeasurementReport, keep func(*MeasurementReport) bool) []*MeasurementReport {
	out := in[:0]
	for _, m := range in {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}
