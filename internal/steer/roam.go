package steer

// RoamFSMState is the per-station roam-steering state, grounded on
// roaming.c's latest draft (four states: idle, scanning, searching for a
// better candidate, and settled on one awaiting the kick timer) rather
// than the older six-state draft kept alongside it in the same source
// tree.
type RoamFSMState uint8

const (
	RoamIdle RoamFSMState = iota
	RoamScan
	RoamSearching
	RoamScanDone
)

func (s RoamFSMState) String() string {
	switch s {
	case RoamIdle:
		return "idle"
	case RoamScan:
		return "scan"
	case RoamSearching:
		return "searching"
	case RoamScanDone:
		return "scan_done"
	default:
		return "unknown"
	}
}

// RoamState is the roam sub-state embedded in StaInfo.
type RoamState struct {
	State RoamFSMState

	Tries        int
	ScanStart    Time
	ScanFinished bool
}

// canPerformSteer gates every roam-FSM transition: a station that hasn't
// advertised BSS Transition Management support, or that was steered too
// recently, is left alone.
func canPerformSteer(cfg *Config, si *StaInfo, now Time) bool {
	if !si.CapBSSTransition {
		return false
	}
	if cfg.SteerRejectTimeout != 0 && si.LastSteer != 0 && now.Sub(si.LastSteer) < cfg.SteerRejectTimeout {
		return false
	}
	return true
}

// roamActive reports whether si is eligible to be driven by the roam FSM
// at all this tick: steering must be permitted, and its signal must be
// below minSignal, the threshold roamMinSignal derives from roam_scan_snr
// (or roam_trigger_snr when roam_scan_snr is zero).
func roamActive(cfg *Config, si *StaInfo, now Time, minSignal int) bool {
	if !canPerformSteer(cfg, si, now) {
		return false
	}
	return si.Signal < minSignal
}

// roamMinSignal computes the absolute signal threshold below which a
// station is considered for roaming, preferring roam_scan_snr over
// roam_trigger_snr; a zero result means roaming is disabled entirely.
func roamMinSignal(cfg *Config, node *Node) (int, bool) {
	var snrThresh int
	switch {
	case cfg.RoamScanSNR != 0:
		snrThresh = cfg.RoamScanSNR
	case cfg.RoamTriggerSNR != 0:
		snrThresh = cfg.RoamTriggerSNR
	default:
		return 0, false
	}
	return snrToSignal(node, snrThresh), true
}

// roamSetState transitions si into state, cancelling any in-flight scan
// job unless the new state is RoamScan (roaming.c's usteer_roam_set_state).
func (e *Engine) roamSetState(si *StaInfo, state RoamFSMState, kind LogEventKind) {
	if state != RoamScan && e.roamRequester != nil {
		si.Scan.Cancel(e.roamRequester)
	}
	si.Roam.State = state
	e.emit(Event{Kind: kind, SiCur: si, NodeLocal: si.Node})
}

// roamFoundBetterNode looks for a steering target with ReasonSignal among
// its select-reasons and, if one exists, transitions si to nextState.
func (e *Engine) roamFoundBetterNode(si *StaInfo, nextState RoamFSMState, maxAge int64) *RankedCandidate {
	cl := BuildForStation(e.Config, si, RatingExclude, ReasonSignal, maxAge, e.now, 1)
	if cl.Len() == 0 {
		return nil
	}
	e.roamSetState(si, nextState, EvBetterCandidate)
	best := cl.Entries()[0]
	return &best
}

// remoteScanNeighborCount caps how many remote neighbors roamStartScan
// queues beacon-measurement jobs for, matching roaming.c's call site
// (usteer_scan_list_add_remote(si, 5, ...)).
const remoteScanNeighborCount = 5

// roamStartScan queues a beacon-table request or, only if that request
// could not be queued, the first five remote neighbors, and moves si into
// RoamScan once scanning is actually underway (roaming.c's
// usteer_roam_sm_start_scan — the table and remote requests are an ||,
// not both attempted unconditionally).
func (e *Engine) roamStartScan(si *StaInfo) {
	if e.roamRequester == nil {
		return
	}
	if si.Scan.TimeoutActive(e.now, e.Config.ScanTimeout) {
		return
	}

	caps := BeaconCapabilities{Active: si.CapRRM, Passive: si.CapRRM, Table: si.CapRRM}
	inserted := si.Scan.ListAddTable(caps, e.roamRequester) ||
		si.Scan.ListAddRemote(e.Registry, si.Node, caps, remoteScanNeighborCount, e.roamRequester)
	if !inserted {
		return
	}

	if si.Scan.Start(e.now, e.Config.ScanTimeout) {
		e.roamSetState(si, RoamScan, EvSignalKick)
	}
}

// roamTriggerSM advances si's roam FSM by one step (roaming.c's
// usteer_roam_trigger_sm), returning true if it kicked the client or sent
// it a BSS transition request, in which case the caller should stop
// processing further stations this tick to let the move settle.
func (e *Engine) roamTriggerSM(si *StaInfo, minSignal int) bool {
	switch si.Roam.State {
	case RoamScan:
		if e.roamFoundBetterNode(si, RoamScanDone, 0) != nil {
			return false
		}
		if si.Roam.ScanFinished {
			si.Roam.ScanFinished = false
			if si.Signal <= minSignal {
				si.Roam.Tries++
			}
			kicked := false
			if e.Config.RoamScanTries != 0 && si.Roam.Tries >= e.Config.RoamScanTries {
				e.kickClient(si, EvSignalKick)
				kicked = true
			}
			e.roamSetState(si, RoamSearching, EvSignalKick)
			return kicked
		}

	case RoamIdle:
		// nothing to do

	case RoamSearching:
		e.roamFoundBetterNode(si, RoamScanDone, 0)
		e.roamStartScan(si)

	case RoamScanDone:
		candidate := e.roamFoundBetterNode(si, RoamScanDone, 0)
		if candidate == nil {
			e.roamSetState(si, RoamSearching, EvSignalKick)
			return false
		}
		if si.Signal <= minSignal {
			return false
		}

		e.requestBSSTransition(si, candidate.Node)
		if e.Config.RoamKickDelay != 0 {
			si.KickTime = e.now.Add(e.Config.RoamKickDelay)
		}
		si.LastSteer = e.now
		e.roamSetState(si, RoamIdle, EvBTM)
		return true
	}

	return false
}

// roamCheck drives every sta_info on ln's local node through the roam FSM
// for one tick (roaming.c's usteer_roam_check). It stops at the first
// station it kicks or sends a BSS transition request, leaving the rest for
// the next tick.
func (e *Engine) roamCheck(ln *Node) {
	minSignal, enabled := roamMinSignal(e.Config, ln)
	if !enabled {
		return
	}

	for _, si := range ln.StaInfos() {
		if !roamActive(e.Config, si, e.now, minSignal) {
			e.roamSetState(si, RoamIdle, EvSignalKick)
			continue
		}

		if si.Roam.State == RoamIdle {
			e.roamSetState(si, RoamSearching, EvSignalKick)
		}

		if e.roamTriggerSM(si, minSignal) {
			return
		}
	}
}

// roamScanFinishedCB is the scan-requester callback registered for
// roaming, marking si's in-flight roam scan complete (roaming.c's
// usteer_roam_scan_finished_cb).
func roamScanFinishedCB(si *StaInfo) {
	si.Roam.ScanFinished = true
}
