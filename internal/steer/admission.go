package steer

// AdmissionReason names why CheckRequest reached its verdict, for the
// event log.
type AdmissionReason string

const (
	ReasonNone             AdmissionReason = ""
	ReasonLowSignal        AdmissionReason = "low_signal"
	ReasonConnectDelay     AdmissionReason = "connect_delay"
	ReasonBetterCandidate  AdmissionReason = "better_candidate"
	ReasonRetryExceeded    AdmissionReason = "retry_exceeded"
)

// CheckRequest decides whether to accept a probe/auth/assoc request from
// si, grounded on policy.c's usteer_check_request decision tree:
//
//   - AUTH is always accepted.
//   - PROBE is accepted outright when probe_steering is disabled.
//   - ASSOC below min_snr is always denied, even with assoc_steering off,
//     to avoid an assoc/kick loop; otherwise, with assoc_steering off,
//     ASSOC is accepted outright.
//   - Every other path runs the common checks: min_connect_snr,
//     initial_connect_delay, and whether a strictly better candidate
//     exists (any select-reason counts).
//
// Retry accounting: every denial increments si's per-event-type blocked
// counters. Once max_retry_band consecutive denials have already
// accumulated in blocked_cur, the *next* request's verdict flips to
// accept and the counter resets, so a station that would otherwise be
// denied forever eventually gets back onto the network after exactly
// max_retry_band real denials.
func (e *Engine) CheckRequest(si *StaInfo, eventType EventType) bool {
	accept := true
	reason := ReasonNone
	threshold := Threshold{}

	switch eventType {
	case EventAuth:
		// always accepted

	case EventProbe:
		if !e.Config.ProbeSteering {
			break
		}
		accept, reason, threshold = e.checkCommon(si)

	case EventAssoc:
		minSignal := snrToSignal(si.Node, e.Config.MinSNR)
		if e.Config.MinSNR != 0 && si.Signal < minSignal {
			accept = false
			reason = ReasonLowSignal
			threshold = Threshold{Cur: si.Signal, Ref: minSignal}
			break
		}
		if !e.Config.AssocSteering {
			break
		}
		accept, reason, threshold = e.checkCommon(si)
	}

	counter := &si.Counters[eventType]
	counter.Requests++

	if !accept {
		if e.Config.MaxRetryBand != 0 && counter.BlockedCur >= e.Config.MaxRetryBand {
			accept = true
			reason = ReasonRetryExceeded
			threshold = Threshold{Cur: counter.BlockedCur, Ref: e.Config.MaxRetryBand}
			counter.BlockedCur = 0
		} else {
			counter.BlockedCur++
			counter.BlockedTotal++
			counter.BlockedLastTime = e.now
		}
	} else {
		counter.BlockedCur = 0
	}

	kind := EvAdmissionAccept
	if !accept {
		kind = EvAdmissionDeny
	}
	if reason == ReasonRetryExceeded {
		kind = EvAdmissionAccept
	}
	e.emit(Event{Kind: kind, Reason: string(reason), SiCur: si, NodeCur: si.Node, Threshold: threshold})

	return accept
}

// checkCommon runs the checks shared by every admitted event type:
// min_connect_snr, initial_connect_delay, and better-candidate.
func (e *Engine) checkCommon(si *StaInfo) (accept bool, reason AdmissionReason, threshold Threshold) {
	minSignal := snrToSignal(si.Node, e.Config.MinConnectSNR)
	if si.Signal < minSignal {
		return false, ReasonLowSignal, Threshold{Cur: si.Signal, Ref: minSignal}
	}

	age := e.now.Sub(si.Created)
	if e.Config.InitialConnectDelay != 0 && age < e.Config.InitialConnectDelay {
		return false, ReasonConnectDelay, Threshold{Cur: int(age), Ref: int(e.Config.InitialConnectDelay)}
	}

	cl := BuildForStation(e.Config, si, RatingRegular, 0, 0, e.now, 1)
	if cl.Len() == 0 {
		return true, ReasonNone, Threshold{}
	}

	return false, ReasonBetterCandidate, Threshold{}
}
