package steer

import "log/slog"

// Reason is a bitmask over the criteria a candidate-list admission or
// load-kick decision considered (C6/C9/C10).
type Reason uint8

const (
	ReasonNumAssoc Reason = 1 << iota
	ReasonSignal
	ReasonLoad
)

func (r Reason) String() string {
	if r == 0 {
		return "none"
	}
	s := ""
	if r&ReasonNumAssoc != 0 {
		s += "num_assoc,"
	}
	if r&ReasonSignal != 0 {
		s += "signal,"
	}
	if r&ReasonLoad != 0 {
		s += "load,"
	}
	return s[:len(s)-1]
}

// Has reports whether r contains every bit set in required.
func (r Reason) Has(required Reason) bool { return r&required == required }

// LogEventKind names the kind of structured event a decision path emits.
type LogEventKind string

const (
	EvInvalidNR           LogEventKind = "invalid_nr"
	EvAdmissionAccept     LogEventKind = "admission_accept"
	EvAdmissionDeny       LogEventKind = "admission_deny"
	EvRetryExceeded       LogEventKind = "retry_exceeded"
	EvSignalKick          LogEventKind = "signal_kick"
	EvLoadKickReset       LogEventKind = "load_kick_reset"
	EvLoadKickTrigger     LogEventKind = "load_kick_trigger"
	EvLoadKickMinClients  LogEventKind = "load_kick_min_clients"
	EvLoadKickNoClient    LogEventKind = "load_kick_no_client"
	EvLoadKickClient      LogEventKind = "load_kick_client"
	EvBTM                 LogEventKind = "btm"
	EvBetterCandidate     LogEventKind = "better_candidate"
	EvRoamKickOutright    LogEventKind = "roam_kick_outright"
)

// Threshold carries the current value and the reference threshold a
// decision compared it against, for the event log.
type Threshold struct {
	Cur int
	Ref int
}

// Event is the structured record every decision path emits (C11).
type Event struct {
	Kind   LogEventKind
	Reason string

	NodeLocal *Node
	NodeCur   *Node

	SiCur   *StaInfo
	SiOther *StaInfo

	CandidateCur   *Candidate
	CandidateOther *Candidate

	Threshold     Threshold
	SelectReasons Reason
	Count         int

	Time Time
}

// EventSink consumes structured events emitted by the decision core.
// External systems (operator log sink, scripted hooks) implement this
// interface; the engine never blocks waiting on it.
type EventSink interface {
	Emit(Event)
}

// SlogSink is an EventSink that writes every event as a structured log
// line, grounded on the teacher's preference for slog-based structured
// logging throughout its ambient stack.
type SlogSink struct {
	Logger *slog.Logger
}

// NewSlogSink returns a SlogSink writing to logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{Logger: logger}
}

func (s *SlogSink) Emit(ev Event) {
	attrs := []any{
		slog.String("kind", string(ev.Kind)),
		slog.String("reason", ev.Reason),
		slog.Int64("time_ms", int64(ev.Time)),
	}
	if ev.NodeLocal != nil {
		attrs = append(attrs, slog.String("node_local", ev.NodeLocal.Key))
	}
	if ev.NodeCur != nil {
		attrs = append(attrs, slog.String("node_cur", ev.NodeCur.Key))
	}
	if ev.SiCur != nil {
		attrs = append(attrs, slog.String("sta", staAddrString(ev.SiCur.Sta.Addr)))
	}
	if ev.SelectReasons != 0 {
		attrs = append(attrs, slog.String("select_reasons", ev.SelectReasons.String()))
	}
	if ev.Threshold != (Threshold{}) {
		attrs = append(attrs, slog.Int("threshold_cur", ev.Threshold.Cur), slog.Int("threshold_ref", ev.Threshold.Ref))
	}
	if ev.Count != 0 {
		attrs = append(attrs, slog.Int("count", ev.Count))
	}
	s.Logger.Info("steer event", attrs...)
}

func staAddrString(a StationAddr) string {
	const hex = "0123456789abcdef"
	b := make([]byte, 0, 17)
	for i, v := range a {
		if i > 0 {
			b = append(b, ':')
		}
		b = append(b, hex[v>>4], hex[v&0xf])
	}
	return string(b)
}

// emit is a nil-safe convenience wrapper used throughout the core.
func (e *Engine) emit(ev Event) {
	if e.Events == nil {
		return
	}
	ev.Time = e.now
	e.Events.Emit(ev)
}
