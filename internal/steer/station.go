package steer

// StationAddr is a station's 6-byte hardware address, used as the stable key
// for the global station registry.
type StationAddr [6]byte

// ConnState is a station's association state at one particular node.
type ConnState uint8

const (
	NotConnected ConnState = iota
	Connected
	Disconnected
)

func (s ConnState) String() string {
	switch s {
	case NotConnected:
		return "not_connected"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// EventType is the kind of 802.11 management frame an admission decision is
// being made for.
type EventType uint8

const (
	EventProbe EventType = iota
	EventAssoc
	EventAuth
)

func (e EventType) String() string {
	switch e {
	case EventProbe:
		return "probe"
	case EventAssoc:
		return "assoc"
	case EventAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// EventCounter tracks retry accounting for one event type on one sta_info,
// per C9's "max_retry_band" lockout-prevention rule.
type EventCounter struct {
	Requests        int
	BlockedCur      int
	BlockedTotal    int
	BlockedLastTime Time
}

// Station is the process-wide, per-MAC record of everything observed about
// one client: its sta_info at every node that has ever seen it, its recent
// measurement reports, and its derived candidates.
type Station struct {
	Addr StationAddr

	Seen2G bool
	Seen5G bool

	// infos indexes this station's sta_info by node key, kept in
	// lockstep with Node.staInfos.
	infos map[string]*StaInfo

	measurements []*MeasurementReport

	// candidates indexes this station's candidates by node key. Node has
	// no matching per-node candidate index.
	candidates map[string]*Candidate
}

func newStation(addr StationAddr) *Station {
	return &Station{
		Addr:       addr,
		infos:      make(map[string]*StaInfo),
		candidates: make(map[string]*Candidate),
	}
}

// StaInfos returns the station's sta_info records in unspecified order.
func (s *Station) StaInfos() []*StaInfo {
	out := make([]*StaInfo, 0, len(s.infos))
	for _, si := range s.infos {
		out = append(out, si)
	}
	return out
}

// Measurements returns the station's measurement reports in unspecified
// order. Used by the gossip sender to republish locally observed signal
// strength for peers to fold into their own candidate lists.
func (s *Station) Measurements() []*MeasurementReport {
	out := make([]*MeasurementReport, 0, len(s.measurements))
	out = append(out, s.measurements...)
	return out
}

// Candidates returns the station's candidate records in unspecified order.
func (s *Station) Candidates() []*Candidate {
	out := make([]*Candidate, 0, len(s.candidates))
	for _, c := range s.candidates {
		out = append(out, c)
	}
	return out
}

// StaInfo is the relation between one Station and one Node ("sta_info" in
// the original source): everything about how this client behaves at this
// particular AP.
type StaInfo struct {
	Sta  *Station
	Node *Node

	Signal    int
	Connected ConnState

	Seen           Time
	Created        Time
	ConnectedSince Time
	LastConnected  Time

	// Counters is indexed by EventType; see C9 admission retry
	// accounting.
	Counters [3]EventCounter

	KickTime  Time
	KickCount int
	RoamKick  Time
	LastSteer Time

	BelowMinSNRStreak int

	BSSTransitionStatus int
	BSSTransitionAt     Time

	CapRRM           bool
	CapBSSTransition bool
	CapMBO           bool

	Roam RoamState
	Scan ScanState

	measurementTimer Timer
	candidateTimer   Timer
}

func newStaInfo(sta *Station, node *Node, now Time) *StaInfo {
	return &StaInfo{
		Sta:       sta,
		Node:      node,
		Seen:      now,
		Created:   now,
		Connected: NotConnected,
		Roam:      RoamState{State: RoamIdle},
		Scan:      newScanState(),
	}
}
