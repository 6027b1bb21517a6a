package steer

import "sort"

// RankedCandidate is one entry of a candidate list being assembled for
// either a reference node's neighbor-report advertisement or a station's
// steering decision (C6). It is distinct from Candidate (candidate.go),
// which is the TTL-cached scored record the engine keeps per (station,
// node) pair; a RankedCandidate is a transient ranking built fresh on
// every call.
type RankedCandidate struct {
	Node     *Node
	Signal   int
	Reasons  Reason
	Priority int
}

// CandidateList is a capped, ordered set of RankedCandidate entries, built
// fresh for one reference node or one station and then discarded.
type CandidateList struct {
	entries   []RankedCandidate
	maxLength int
}

// NewCandidateList returns an empty list capped at maxLength entries; 0
// means unbounded.
func NewCandidateList(maxLength int) *CandidateList {
	return &CandidateList{maxLength: maxLength}
}

// Entries returns the list's current entries in their current order.
func (cl *CandidateList) Entries() []RankedCandidate { return cl.entries }

// Len returns the number of entries currently in the list.
func (cl *CandidateList) Len() int { return len(cl.entries) }

func (cl *CandidateList) containsNode(n *Node) bool {
	for _, c := range cl.entries {
		if c.Node == n {
			return true
		}
	}
	return false
}

func (cl *CandidateList) canInsert() bool {
	return cl.maxLength == 0 || len(cl.entries) < cl.maxLength
}

func (cl *CandidateList) canInsertNode(n *Node) bool {
	return cl.canInsert() && !cl.containsNode(n)
}

// addNode appends n if it is not already present and the cap allows it.
func (cl *CandidateList) addNode(n *Node, signal int, reasons Reason) bool {
	if !cl.canInsertNode(n) {
		return false
	}
	cl.entries = append(cl.entries, RankedCandidate{Node: n, Signal: signal, Reasons: reasons})
	return true
}

// addBetterNode inserts n, displacing the current worst-signal entry when
// the list is at capacity and n beats it (spec.md §4.6's "displacement of
// the worst-signal entry at cap").
func (cl *CandidateList) addBetterNode(n *Node, signal int, reasons Reason) bool {
	if cl.containsNode(n) {
		return false
	}
	if cl.addNode(n, signal, reasons) {
		return true
	}

	worst := -1
	for i, c := range cl.entries {
		if worst == -1 || c.Signal < cl.entries[worst].Signal {
			worst = i
		}
	}
	if worst == -1 || cl.entries[worst].Signal >= signal {
		return false
	}

	cl.entries = append(cl.entries[:worst], cl.entries[worst+1:]...)
	return cl.addNode(n, signal, reasons)
}

// sortByLoad orders entries by ascending load-class, 5GHz winning ties
// within the same load-class (candidate.c's cl_sort_has_lower_load).
func (cl *CandidateList) sortByLoad() {
	sort.SliceStable(cl.entries, func(i, j int) bool {
		li, lj := loadClass(cl.entries[i].Node.Load), loadClass(cl.entries[j].Node.Load)
		if li != lj {
			return li < lj
		}
		iIs5G := cl.entries[i].Node.FreqMHz > 4000
		jIs5G := cl.entries[j].Node.FreqMHz > 4000
		return iIs5G && !jIs5G
	})
}

// sortByPriority orders entries by descending priority.
func (cl *CandidateList) sortByPriority() {
	sort.SliceStable(cl.entries, func(i, j int) bool {
		return cl.entries[i].Priority > cl.entries[j].Priority
	})
}

const (
	nrMaxPreference = 255
	nrMinPreference = 0
)

// assignLoadPreference walks entries in their current (load-sorted) order
// and assigns a priority that starts at 255 and decrements by one every
// time load-class increases from the previous entry, then applies the
// PREFER/FORBID rating override for ref (candidate.c's
// usteer_candidate_list_add_load_preference).
func (cl *CandidateList) assignLoadPreference(ref *Node, rating Rating) {
	pref := nrMaxPreference
	if rating == RatingPrefer {
		pref--
	}

	lastLoad := -1
	for i := range cl.entries {
		n := cl.entries[i].Node
		load := loadClass(n.Load)
		if lastLoad > -1 && lastLoad < load {
			pref--
		}
		cl.entries[i].Priority = pref
		lastLoad = load

		if n == ref {
			switch rating {
			case RatingPrefer:
				cl.entries[i].Priority = nrMaxPreference
			case RatingForbid:
				cl.entries[i].Priority = nrMinPreference
			}
		}
	}
}

// addLocalNodes seeds cl with every local node sharing ref's SSID
// (candidate.c's usteer_candidate_list_add_local_nodes).
func (cl *CandidateList) addLocalNodes(r *Registry, ref *Node, rating Rating) int {
	inserted := 0
	for _, n := range r.LocalNodes() {
		if n == ref && rating == RatingExclude {
			continue
		}
		if n.SSID != ref.SSID {
			continue
		}
		if cl.addNode(n, 0, 0) {
			inserted++
		}
	}
	return inserted
}

// addRemoteNodes seeds cl with ref's remote neighbors, in deterministic
// order, until the list is full or neighbors are exhausted (candidate.c's
// usteer_candidate_list_add_remote_nodes).
func (cl *CandidateList) addRemoteNodes(r *Registry, ref *Node) int {
	inserted := 0
	var last *Node
	for cl.canInsert() {
		n, ok := r.NextNeighbor(ref, last)
		if !ok {
			break
		}
		if cl.addNode(n, 0, 0) {
			inserted++
		}
		last = n
	}
	return inserted
}

// BuildForNode builds the ordered 802.11k neighbor-report candidate list a
// reference node advertises to its associated stations (spec.md §4.6's
// "for a reference node" entry point), grounded on
// usteer_candidate_list_add_for_node.
func BuildForNode(r *Registry, ref *Node, rating Rating, maxLength int) *CandidateList {
	cl := NewCandidateList(maxLength)

	cl.addLocalNodes(r, ref, rating)
	cl.addRemoteNodes(r, ref)

	cl.sortByLoad()
	cl.assignLoadPreference(ref, rating)
	cl.sortByPriority()

	return cl
}

// belowMaxAssoc reports whether node has spare association capacity, or
// has no cap configured.
func belowMaxAssoc(node *Node) bool {
	return node.MaxAssoc == 0 || node.NAssoc < node.MaxAssoc
}

// overMinSignal reports whether signal clears both the configured min_snr
// and roam_trigger_snr floors for node.
func overMinSignal(cfg *Config, node *Node, signal int) bool {
	if cfg.MinSNR != 0 && signal < snrToSignal(node, cfg.MinSNR) {
		return false
	}
	if cfg.RoamTriggerSNR != 0 && signal < snrToSignal(node, cfg.RoamTriggerSNR) {
		return false
	}
	return true
}

// belowAssocThreshold reports whether new is no more loaded than cur,
// after applying a band-steering bias (a 2.4GHz node is treated as more
// loaded than it reports when compared against a 5GHz one) and the
// configured load-balancing threshold.
func belowAssocThreshold(cfg *Config, cur, new *Node) bool {
	nAssocCur := cur.NAssoc
	nAssocNew := new.NAssoc
	curIs5G := cur.FreqMHz > 4000
	newIs5G := new.FreqMHz > 4000

	if curIs5G && !newIs5G {
		nAssocNew += cfg.BandSteeringThreshold
	} else if !curIs5G && newIs5G {
		nAssocCur += cfg.BandSteeringThreshold
	}

	nAssocNew += cfg.LoadBalancingThreshold

	return nAssocNew <= nAssocCur
}

// betterSignalStrength reports whether newSignal beats curSignal by more
// than signal_diff_threshold. A zero threshold disables the check
// entirely (it never reports true), matching the upstream default of
// never steering on signal alone unless configured.
func betterSignalStrength(cfg *Config, curSignal, newSignal int) bool {
	if cfg.SignalDiffThreshold == 0 {
		return false
	}
	return newSignal-curSignal > cfg.SignalDiffThreshold
}

// belowLoadThreshold reports whether node is both populated enough and
// loaded enough to be considered a load-kick candidate.
func belowLoadThreshold(cfg *Config, node *Node) bool {
	return node.NAssoc >= cfg.LoadKickMinClients && node.Load > cfg.LoadKickThreshold
}

// hasBetterLoad reports whether new is a load improvement over cur: cur is
// over the load-kick threshold and new is not.
//
// The implementation this is grounded on computed this by calling
// has_better_load(cur, new) twice with the arguments in the same order,
// so the second call always cancelled the first and the condition was
// always false. The fix compares both directions.
func hasBetterLoad(cfg *Config, cur, new *Node) bool {
	return belowLoadThreshold(cfg, cur) && !belowLoadThreshold(cfg, new)
}

// nodeCheckCanConnect is the minimal admission gate a candidate node must
// clear before it can be suggested at all: spare capacity, signal floor,
// and matching SSID.
func nodeCheckCanConnect(cfg *Config, currentNode *Node, newNode *Node, newSignal int) bool {
	if !belowMaxAssoc(newNode) {
		return false
	}
	if !overMinSignal(cfg, newNode, newSignal) {
		return false
	}
	return currentNode == nil || newNode.SSID == currentNode.SSID
}

// IsBetterCandidate computes the select-reason bitmask for steering a
// station from (currentNode, currentSignal) to (newNode, newSignal); a
// zero result means newNode is not an improvement at all.
func IsBetterCandidate(cfg *Config, currentNode *Node, currentSignal int, newNode *Node, newSignal int) Reason {
	if !belowMaxAssoc(newNode) {
		return 0
	}
	if !overMinSignal(cfg, newNode, newSignal) {
		return 0
	}

	var reasons Reason
	if belowAssocThreshold(cfg, currentNode, newNode) && !belowAssocThreshold(cfg, newNode, currentNode) {
		reasons |= ReasonNumAssoc
	}
	if betterSignalStrength(cfg, currentSignal, newSignal) {
		reasons |= ReasonSignal
	}
	if hasBetterLoad(cfg, currentNode, newNode) && !hasBetterLoad(cfg, newNode, currentNode) {
		reasons |= ReasonLoad
	}
	return reasons
}

// nodeSelectableBySTAInfo reports whether foreign (a sta_info on a
// different node) is eligible to be considered alongside ref when
// building a per-station candidate list: same SSID, within signal_max_age
// and seen_policy_timeout, and able to connect.
func nodeSelectableBySTAInfo(cfg *Config, ref, foreign *StaInfo, now Time, signalMaxAge int64) bool {
	if ref.Node.SSID != foreign.Node.SSID {
		return false
	}
	age := now.Sub(foreign.Seen)
	if signalMaxAge != 0 && age > signalMaxAge {
		return false
	}
	if cfg.SeenPolicyTimeout != 0 && age > cfg.SeenPolicyTimeout {
		return false
	}
	return nodeCheckCanConnect(cfg, ref.Node, foreign.Node, foreign.Signal)
}

// BuildForStation builds the ranked, capped steering-candidate list for
// si (spec.md §4.6's "for a station" entry point), considering every node
// the station has a fresh sta_info record on, grounded on
// usteer_candidate_list_add_for_sta.
func BuildForStation(cfg *Config, si *StaInfo, rating Rating, requiredCriteria Reason, signalMaxAge int64, now Time, maxLength int) *CandidateList {
	cl := NewCandidateList(maxLength)

	for _, foreign := range si.Sta.StaInfos() {
		if !nodeSelectableBySTAInfo(cfg, si, foreign, now, signalMaxAge) {
			continue
		}

		if rating == RatingExclude && si.Node == foreign.Node {
			continue
		}

		reasons := IsBetterCandidate(cfg, si.Node, si.Signal, foreign.Node, foreign.Signal)
		if reasons == 0 {
			continue
		}
		if requiredCriteria != 0 && reasons&requiredCriteria == 0 {
			continue
		}

		cl.addBetterNode(foreign.Node, foreign.Signal, reasons)
	}

	cl.sortByLoad()
	cl.assignLoadPreference(si.Node, rating)
	cl.sortByPriority()

	return cl
}
