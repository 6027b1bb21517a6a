package steer

// NodeType distinguishes an AP owned by this process from one known only
// through gossip.
type NodeType uint8

const (
	// NodeLocal is an AP this process directly controls through the
	// driver adapter.
	NodeLocal NodeType = iota
	// NodeRemote is an AP known only through the gossip transport.
	NodeRemote
)

func (t NodeType) String() string {
	switch t {
	case NodeLocal:
		return "local"
	case NodeRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Rating overrides a reference node's candidate-list priority, mirroring an
// operator pin ("always prefer this AP", "never suggest this AP").
type Rating uint8

const (
	// RatingRegular applies no override; priority is load/policy derived.
	RatingRegular Rating = iota
	// RatingPrefer forces priority 255 when this node is the reference
	// node in a candidate list.
	RatingPrefer
	// RatingForbid forces priority 0 when this node is the reference node.
	RatingForbid
	// RatingExclude removes this node from candidate lists entirely.
	RatingExclude
)

// Node is a known access point, local or remote.
type Node struct {
	// Key is the stable BSSID-like identifier used for lookups and
	// gossip deduplication.
	Key string

	SSID     string
	FreqMHz  int
	Channel  uint8
	OpClass  uint8
	Noise    int // dBm; 0 means "unknown", see scoring.go's noiseOrDefault.
	NAssoc   int
	MaxAssoc int // 0 = unlimited
	Load     int // 0..100

	// NRTemplate is the operator-supplied neighbor-report template
	// (prefix + subelements) this node advertises for itself, before any
	// per-request preference subelement is overlaid.
	NRTemplate []byte

	Type      NodeType
	Disabled  bool
	CreatedAt Time
	Rating    Rating

	// RoamEventsSource/RoamEventsTarget are slots for, respectively, how
	// many times a STA roamed away from this node and onto it. Nothing in
	// this package increments them, so both stay at zero. See SPEC_FULL.md.
	RoamEventsSource int
	RoamEventsTarget int

	// LoadThrCount is the local-node-only load-kick-loop bookkeeping
	// counter (C10); meaningless on a remote node.
	LoadThrCount int

	// staInfos indexes this node's sta_info records by station address,
	// kept in lockstep with Station.infos by Registry so a record always
	// appears in both collections or neither.
	staInfos map[StationAddr]*StaInfo
}

// newNode returns a Node with its internal indexes initialized.
func newNode(key string, typ NodeType, now Time) *Node {
	return &Node{
		Key:       key,
		Type:      typ,
		CreatedAt: now,
		staInfos:  make(map[StationAddr]*StaInfo),
	}
}

// Uptime returns how long this node has existed as of now.
func (n *Node) Uptime(now Time) int64 {
	return now.Sub(n.CreatedAt)
}

// StaInfos returns every sta_info record currently attached to this node.
func (n *Node) StaInfos() []*StaInfo {
	out := make([]*StaInfo, 0, len(n.staInfos))
	for _, si := range n.staInfos {
		out = append(out, si)
	}
	return out
}

// loadClass is the load, rounded down to the nearest multiple of 10, used to
// bucket nodes for candidate-list ordering (candidate.c's "classify_load").
func loadClass(load int) int {
	return (load / 10) * 10
}
