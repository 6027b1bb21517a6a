package steer

// Beacon-measurement op_class table from 802.11k, grounded on scan.c's
// usteer_scan_node_to_op_class.
const (
	opClass2G1to13  = 81
	opClass5G36to48 = 115
	opClass5G52to64 = 118
	opClass5G100to144 = 121
	opClass5G149to169 = 125
)

// opClassForNode derives the operating class a beacon request should
// target for node, from its frequency/channel.
func opClassForNode(node *Node) int {
	if node.FreqMHz < 3000 {
		return opClass2G1to13
	}
	switch {
	case node.Channel <= 48:
		return opClass5G36to48
	case node.Channel <= 64:
		return opClass5G52to64
	case node.Channel <= 144:
		return opClass5G100to144
	default:
		return opClass5G149to169
	}
}

// ScanJob is one queued beacon-measurement request, deduplicated by
// (mode, op_class, channel); RequestSources is the bitmask of requester
// ids that asked for it.
type ScanJob struct {
	Mode           ScanMode
	OpClass        uint8
	Channel        uint8
	RequestSources uint32
}

// scanStateEnum is the per-station scan sub-state (idle vs. a job running).
type scanStateEnum uint8

const (
	scanIdle scanStateEnum = iota
	scanRunning
)

// ScanState is the scan sub-state embedded in StaInfo.
type ScanState struct {
	state   scanStateEnum
	queue   []ScanJob
	start   Time
	end     Time
	lastReq Time
}

func newScanState() ScanState {
	return ScanState{state: scanIdle}
}

// Active reports whether a scan job is currently running for this station.
func (s *ScanState) Active() bool { return s.state == scanRunning }

// QueueLen reports the number of jobs still queued.
func (s *ScanState) QueueLen() int { return len(s.queue) }

// ScanRequester is a registered consumer of scan results; Id is the small
// bit position used in ScanJob.RequestSources, so the registry caps
// registration at 32 requesters (scan.c's next_requester_id == 32 check).
type ScanRequester struct {
	Id   uint8
	Name string
	OnScanFinish func(si *StaInfo)
}

const maxScanRequesters = 32

// ScanCoordinator tracks registered requesters and drives every station's
// scan queue (C7).
type ScanCoordinator struct {
	requesters []*ScanRequester
}

// NewScanCoordinator returns an empty coordinator.
func NewScanCoordinator() *ScanCoordinator {
	return &ScanCoordinator{}
}

// RegisterRequester assigns the next free small id to name and returns the
// handle to use for ListAddTable/ListAddRemote/Cancel; it returns nil once
// 32 requesters are registered.
func (c *ScanCoordinator) RegisterRequester(name string, onFinish func(si *StaInfo)) *ScanRequester {
	if len(c.requesters) >= maxScanRequesters {
		return nil
	}
	r := &ScanRequester{Id: uint8(len(c.requesters)), Name: name, OnScanFinish: onFinish}
	c.requesters = append(c.requesters, r)
	return r
}

func (s *ScanState) indexOf(mode ScanMode, opClass, channel uint8) int {
	for i, j := range s.queue {
		if j.Mode == mode && j.OpClass == opClass && j.Channel == channel {
			return i
		}
	}
	return -1
}

// listAdd upserts a job for (mode, op_class, channel), OR-ing requester's
// bit into its RequestSources (scan.c's usteer_scan_list_add).
func (s *ScanState) listAdd(mode ScanMode, opClass, channel uint8, requester *ScanRequester) bool {
	if i := s.indexOf(mode, opClass, channel); i >= 0 {
		s.queue[i].RequestSources |= 1 << requester.Id
		return true
	}
	s.queue = append(s.queue, ScanJob{Mode: mode, OpClass: opClass, Channel: channel, RequestSources: 1 << requester.Id})
	return true
}

// capabilities a station has advertised, consulted by ListAddNode/ListAddTable.
type BeaconCapabilities struct {
	Active  bool
	Passive bool
	Table   bool
}

// listAddNode queues a job measuring node, choosing active/passive mode
// per the station's advertised capabilities and node's band (scan.c's
// usteer_scan_list_add_node, including its documented quirk: active
// probing is never requested on 5GHz because some stations misreport
// support for it there).
func (s *ScanState) listAddNode(caps BeaconCapabilities, node *Node, requester *ScanRequester) bool {
	if node.FreqMHz < 3000 {
		if caps.Active {
			return s.listAdd(ScanActive, opClass2G1to13, node.Channel, requester)
		}
		if caps.Passive {
			return s.listAdd(ScanActive, opClass2G1to13, node.Channel, requester)
		}
		return false
	}

	if caps.Passive {
		return s.listAdd(ScanPassive, uint8(opClassForNode(node)), node.Channel, requester)
	}
	return false
}

// ListAddTable queues a beacon-table request, if the station supports it.
func (s *ScanState) ListAddTable(caps BeaconCapabilities, requester *ScanRequester) bool {
	if !caps.Table {
		return false
	}
	return s.listAdd(ScanTable, 0, 0, requester)
}

// ListAddRemote queues beacon-measurement jobs for up to the first count of
// ref's remote neighbors (scan.c's usteer_scan_list_add_remote).
func (s *ScanState) ListAddRemote(r *Registry, ref *Node, caps BeaconCapabilities, count int, requester *ScanRequester) bool {
	inserted := false
	var last *Node
	for i := 0; i < count; i++ {
		n, ok := r.NextNeighbor(ref, last)
		if !ok {
			break
		}
		if s.listAddNode(caps, n, requester) {
			inserted = true
		}
		last = n
	}
	return inserted
}

// Clear drops every queued job without running it.
func (s *ScanState) Clear() { s.queue = nil }

// TimeoutActive reports whether a completed scan's cooldown window
// (scan_timeout) is still in effect.
func (s *ScanState) TimeoutActive(now Time, scanTimeoutMs int64) bool {
	return s.end != 0 && now.Sub(s.end) < scanTimeoutMs
}

// Start transitions si into the running state if it has queued work and
// isn't cooling down, returning false if it could not start.
func (s *ScanState) Start(now Time, scanTimeoutMs int64) bool {
	if s.state != scanIdle {
		return true
	}
	if s.TimeoutActive(now, scanTimeoutMs) {
		return false
	}
	if len(s.queue) == 0 {
		return false
	}
	s.state = scanRunning
	s.start = now
	s.end = 0
	return true
}

// Stop clears the queue and, if a scan was running, marks its end time.
func (s *ScanState) Stop(now Time) {
	s.Clear()
	if s.state == scanIdle {
		return
	}
	s.state = scanIdle
	s.end = now
}

// Cancel removes requester's bit from every queued job, dropping jobs
// whose RequestSources becomes empty.
func (s *ScanState) Cancel(requester *ScanRequester) {
	out := s.queue[:0]
	for _, j := range s.queue {
		j.RequestSources &^= 1 << requester.Id
		if j.RequestSources != 0 {
			out = append(out, j)
		}
	}
	s.queue = out
}

// Next pops the head job, triggers it through driver, and notifies every
// requester whose bits are now fully drained from the remaining queue
// (scan.c's usteer_scan_next: popped.sources & ~OR(remaining.sources)).
func (c *ScanCoordinator) Next(ctx engineContext, si *StaInfo) {
	s := &si.Scan
	if len(s.queue) == 0 {
		s.Stop(ctx.currentTime())
		return
	}

	job := s.queue[0]
	s.queue = s.queue[1:]
	s.lastReq = ctx.currentTime()
	ctx.triggerBeaconRequest(si, job.Mode, job.OpClass, job.Channel)

	remaining := uint32(0)
	for _, j := range s.queue {
		remaining |= j.RequestSources
	}
	notify := job.RequestSources &^ remaining
	if notify != 0 {
		c.notify(notify, si)
	}

	if len(s.queue) == 0 {
		s.Stop(ctx.currentTime())
	}
}

func (c *ScanCoordinator) notify(mask uint32, si *StaInfo) {
	for _, r := range c.requesters {
		if mask&(1<<r.Id) != 0 && r.OnScanFinish != nil {
			r.OnScanFinish(si)
		}
	}
}

// engineContext is the minimal surface ScanCoordinator.Next needs from the
// engine, kept as an interface so scan.go has no direct dependency on
// engine.go's concrete type or its driver wiring.
type engineContext interface {
	currentTime() Time
	triggerBeaconRequest(si *StaInfo, mode ScanMode, opClass, channel uint8)
}
