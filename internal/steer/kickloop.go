package steer

// divRoundUp performs ceiling integer division, used to convert a
// millisecond delay into a tick count against local_sta_update.
func divRoundUp(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// isMoreKickable reports whether candidate is a better victim than cur: a
// nil cur always loses, a higher kick count always loses (spreading kicks
// across the client population), and ties go to whichever has the
// stronger signal (kick the one least likely to be disrupted by it).
func isMoreKickable(cur, candidate *StaInfo) bool {
	if cur == nil {
		return true
	}
	if candidate.KickCount != cur.KickCount {
		return candidate.KickCount < cur.KickCount
	}
	return candidate.Signal > cur.Signal
}

// snrKick walks ln's connected stations and, once one has stayed below
// min_snr for min_snr_kick_delay worth of ticks, kicks it and stops for
// this tick (policy.c's usteer_local_node_snr_kick).
func (e *Engine) snrKick(ln *Node) {
	if e.Config.MinSNR == 0 {
		return
	}
	minCount := divRoundUp(e.Config.MinSNRKickDelay, e.Config.LocalStaUpdate)
	minSignal := snrToSignal(ln, e.Config.MinSNR)

	for _, si := range ln.StaInfos() {
		if si.Connected != Connected {
			continue
		}

		if si.Signal >= minSignal {
			si.BelowMinSNRStreak = 0
			continue
		}
		si.BelowMinSNRStreak++

		if int64(si.BelowMinSNRStreak) <= minCount {
			continue
		}

		si.KickCount++
		e.emit(Event{Kind: EvSignalKick, NodeLocal: ln, SiCur: si, Threshold: Threshold{Cur: si.Signal, Ref: minSignal}, Count: si.KickCount})
		e.kickClient(si, EvSignalKick)
		return
	}
}

// loadKick implements the per-tick load-shedding decision (policy.c's
// usteer_local_node_kick's load-kick tail): a node has to stay at or above
// load_kick_threshold for load_kick_delay worth of ticks before a kick is
// considered, and even then only once it has load_kick_min_clients
// connected; the victim is whichever candidate-backed station is most
// kickable, falling back to the most kickable connected station overall.
func (e *Engine) loadKick(ln *Node) {
	if !e.Config.LoadKickEnabled || e.Config.LoadKickThreshold == 0 || e.Config.LoadKickDelay == 0 {
		return
	}
	minCount := divRoundUp(e.Config.LoadKickDelay, e.Config.LocalStaUpdate)

	if ln.Load < e.Config.LoadKickThreshold {
		if ln.LoadThrCount == 0 {
			return
		}
		ln.LoadThrCount = 0
		e.emit(Event{Kind: EvLoadKickReset, NodeLocal: ln, Threshold: Threshold{Cur: ln.Load, Ref: e.Config.LoadKickThreshold}})
		return
	}

	ln.LoadThrCount++
	if int64(ln.LoadThrCount) <= minCount {
		if ln.LoadThrCount > 1 {
			return
		}
		e.emit(Event{Kind: EvLoadKickTrigger, NodeLocal: ln, Threshold: Threshold{Cur: ln.Load, Ref: e.Config.LoadKickThreshold}})
		return
	}

	ln.LoadThrCount = 0
	if ln.NAssoc < e.Config.LoadKickMinClients {
		e.emit(Event{Kind: EvLoadKickMinClients, NodeLocal: ln, Threshold: Threshold{Cur: ln.NAssoc, Ref: e.Config.LoadKickMinClients}})
		return
	}

	var kick1, kick2 *StaInfo
	var otherCandidate *RankedCandidate

	for _, si := range ln.StaInfos() {
		if si.Connected != Connected {
			continue
		}

		if isMoreKickable(kick1, si) {
			kick1 = si
		}

		cl := BuildForStation(e.Config, si, RatingRegular, ReasonLoad, 0, e.now, 1)
		if cl.Len() == 0 {
			continue
		}

		if isMoreKickable(kick2, si) {
			kick2 = si
			best := cl.Entries()[0]
			otherCandidate = &best
		}
	}

	if kick1 == nil {
		e.emit(Event{Kind: EvLoadKickNoClient, NodeLocal: ln})
		return
	}

	victim := kick1
	if kick2 != nil {
		victim = kick2
	}
	victim.KickCount++

	ev := Event{Kind: EvLoadKickClient, NodeLocal: ln, SiCur: victim, Count: victim.KickCount}
	if otherCandidate != nil && otherCandidate.Node != nil {
		if foreign, ok := victim.Sta.infos[otherCandidate.Node.Key]; ok {
			ev.SiOther = foreign
		}
	}
	e.emit(ev)
	e.kickClient(victim, EvLoadKickClient)
}

// Kick runs the full per-tick local-node decision sequence on ln: roam
// steering, SNR-based kicks, and load-based kicks (policy.c's
// usteer_local_node_kick).
func (e *Engine) Kick(ln *Node) {
	e.roamCheck(ln)
	e.snrKick(ln)
	e.loadKick(ln)
}
