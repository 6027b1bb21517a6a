package steer

// InformationSource ranks how a candidate's signal/SNR fields were derived;
// fresher sources outrank staler ones when choosing the age-penalty
// timestamp (C4).
type InformationSource uint8

const (
	SourceUnknown InformationSource = iota
	SourceStaInfo
	SourceMeasurement
)

func (s InformationSource) rank() int { return int(s) }

// Better reports whether s ranks strictly above other.
func (s InformationSource) Better(other InformationSource) bool {
	return s.rank() > other.rank()
}

// candidateTTLMillis is the fixed candidate-record lifetime from spec.md
// §3 ("Candidate... TTL 10 s, refreshed by the scoring pass").
const candidateTTLMillis = 10_000

// Candidate is a derived, scored roam target for one (station, node) pair.
type Candidate struct {
	Sta  *Station
	Node *Node

	Timestamp          Time
	Signal             int
	SNR                int
	EstimatedThroughput int
	Score              int

	InformationSource InformationSource
	// InformationTimestamp is the observation time used for the age
	// penalty in scoring.go; it tracks whichever source last won
	// InformationSource.Better.
	InformationTimestamp Time

	Priority int

	timer Timer
}

// CandidateGet returns the candidate for (sta, node), creating it if create
// is true and it does not yet exist, and always re-arming its 10 s TTL (C4:
// "on access, 10 s TTL is re-armed").
func (e *Engine) CandidateGet(sta *Station, node *Node, create bool, now Time) *Candidate {
	c, ok := sta.candidates[node.Key]
	if !ok {
		if !create {
			return nil
		}
		c = &Candidate{Sta: sta, Node: node, Timestamp: now}
		sta.candidates[node.Key] = c
	}

	e.armCandidateTTL(sta, node, c, now)
	return c
}

func (e *Engine) armCandidateTTL(sta *Station, node *Node, c *Candidate, now Time) {
	key := node.Key
	e.Wheel.Set(&c.timer, int64(now), candidateTTLMillis, func() {
		if cur, ok := sta.candidates[key]; ok && cur == c {
			delete(sta.candidates, key)
		}
	})
}

// CandidateFor returns the existing candidate for (sta, node) without
// creating or re-arming it.
func CandidateFor(sta *Station, node *Node) (*Candidate, bool) {
	c, ok := sta.candidates[node.Key]
	return c, ok
}
