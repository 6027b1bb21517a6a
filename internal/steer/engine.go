package steer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dantte-lp/steerd/internal/sched"
)

// Timer is a scheduled-deadline handle from the shared timeout wheel (C2),
// aliased here so the rest of this package never imports internal/sched
// directly.
type Timer = sched.Timer

// Engine is the decision core. Tick, every Handle* method, and
// NeighborReportReply take mu, so the driver adapter's signal-dispatch
// goroutine, the gossip transport's receive goroutine, and the process's
// own tick loop can each call in without the caller having to funnel
// everything through one goroutine itself — the same mutex-guarded-map
// shape as the teacher's bfd.Manager, rather than a single-owner-goroutine
// design. Internal helpers (triggerBeaconRequest, kickClient, ...) assume
// mu is already held and must never be called except from within Tick or
// one of those exported entry points.
type Engine struct {
	Config   *Config
	Registry *Registry
	Wheel    *sched.Wheel
	Driver   Driver
	Events   EventSink
	Log      *slog.Logger

	scan          *ScanCoordinator
	roamRequester *ScanRequester

	mu  sync.Mutex
	now Time
}

// NewEngine wires together a fresh decision core around cfg, driver, and
// events. A nil logger falls back to slog.Default().
func NewEngine(cfg *Config, driver Driver, events EventSink, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		Config:   cfg,
		Registry: NewRegistry(),
		Wheel:    sched.NewWheel(),
		Driver:   driver,
		Events:   events,
		Log:      logger,
		scan:     NewScanCoordinator(),
	}
	e.roamRequester = e.scan.RegisterRequester("roaming", roamScanFinishedCB)
	return e
}

// Now returns the engine's current tick time. Safe to call from any
// goroutine.
func (e *Engine) Now() Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

// currentTime satisfies engineContext for ScanCoordinator.Next.
func (e *Engine) currentTime() Time { return e.now }

// RegisterScanRequester exposes the scan coordinator's requester
// registration to callers outside this package that want their own scan
// results (capped at 32 total requesters including the built-in roaming
// one).
func (e *Engine) RegisterScanRequester(name string, onFinish func(si *StaInfo)) *ScanRequester {
	return e.scan.RegisterRequester(name, onFinish)
}

// triggerBeaconRequest asks the driver to perform a beacon measurement,
// logging (but not propagating) a failure: a dropped scan request is
// retried on the station's own cadence, not worth stalling the tick over.
func (e *Engine) triggerBeaconRequest(si *StaInfo, mode ScanMode, opClass, channel uint8) {
	if e.Driver == nil {
		return
	}
	if err := e.Driver.TriggerBeaconRequest(context.Background(), si, mode, opClass, channel); err != nil {
		e.Log.Warn("beacon request failed", "sta", staAddrString(si.Sta.Addr), "err", err)
	}
}

// kickClient disassociates si through the driver with
// load_kick_reason_code; kind appears only in the failure log line.
func (e *Engine) kickClient(si *StaInfo, kind LogEventKind) {
	if e.Driver == nil {
		return
	}
	si.KickTime = e.now
	if err := e.Driver.KickClient(context.Background(), si, e.Config.LoadKickReasonCode); err != nil {
		e.Log.Warn("kick failed", "sta", staAddrString(si.Sta.Addr), "kind", string(kind), "err", err)
	}
}

// requestBSSTransition sends an 802.11v BSS Transition Management request
// steering si toward target.
func (e *Engine) requestBSSTransition(si *StaInfo, target *Node) {
	if e.Driver == nil {
		return
	}
	si.BSSTransitionAt = e.now
	err := e.Driver.BSSTransitionRequest(context.Background(), si, 1, false, false, 100, target)
	if err != nil {
		e.Log.Warn("bss transition request failed", "sta", staAddrString(si.Sta.Addr), "err", err)
		return
	}
	e.emit(Event{Kind: EvBTM, SiCur: si, NodeCur: target})
}

// Tick advances the engine's clock to now, fires every due timer, and
// drives every local node's scheduled-kick sequence (spec.md §2's
// top-level control flow: one monotonic sample per tick, then C10 which
// itself drives C8, C7, C6, and C5).
func (e *Engine) Tick(now Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.now = now
	e.Wheel.Poll(int64(now))

	for _, sta := range e.Registry.Stations() {
		e.expireMeasurements(sta, now)
	}

	for _, ln := range e.Registry.LocalNodes() {
		e.Kick(ln)
		e.advanceScan(ln)
	}
}

// advanceScan starts or continues a queued scan for every sta_info on ln
// that has pending work, popping one job per station per tick (spec.md
// §4.7's scan coordinator driving one job at a time so requests don't
// burst).
func (e *Engine) advanceScan(ln *Node) {
	for _, si := range ln.StaInfos() {
		if !si.Scan.Active() {
			if si.Scan.QueueLen() == 0 {
				continue
			}
			if !si.Scan.Start(e.now, e.Config.ScanTimeout) {
				continue
			}
		}
		e.scan.Next(e, si)
	}
}

// HandleMeasurementReport records a beacon measurement report arriving
// asynchronously from the driver, keyed by station address and node key.
func (e *Engine) HandleMeasurementReport(addr StationAddr, nodeKey string, rcpi, rsni int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	node, ok := e.Registry.Node(nodeKey)
	if !ok {
		return
	}
	sta := e.Registry.Station(addr, true)
	e.AddMeasurement(sta, node, rcpi, rsni, e.now)
}

// HandleRequest runs the admission decision for a probe/auth/assoc event
// arriving from the driver, creating the station and sta_info records if
// this is the first time they've been seen.
func (e *Engine) HandleRequest(addr StationAddr, nodeKey string, eventType EventType, signal int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	node, ok := e.Registry.Node(nodeKey)
	if !ok {
		return true
	}
	sta := e.Registry.Station(addr, true)
	si := e.Registry.StaInfoGet(sta, node, true, e.now)
	si.Signal = signal
	si.Seen = e.now

	return e.CheckRequest(si, eventType)
}

// HandleBSSTransitionResponse records the station's reply to a previously
// sent BSS Transition Management request. A non-zero status means the
// station declined or could not complete the move; steerd only logs this,
// since spec.md §4.8 treats a declined BTM as informational and relies on
// the reject timeout rather than an explicit retry backoff.
func (e *Engine) HandleBSSTransitionResponse(addr StationAddr, status int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sta := e.Registry.Station(addr, false)
	if sta == nil {
		return
	}
	for _, si := range sta.StaInfos() {
		if si.BSSTransitionAt == 0 {
			continue
		}
		si.BSSTransitionStatus = status
		if status != 0 {
			e.Log.Info("bss transition declined", "sta", staAddrString(addr), "status", status)
		}
	}
}

// HandleAssocChange updates si's connection bookkeeping when a station
// associates to or disassociates from node.
func (e *Engine) HandleAssocChange(addr StationAddr, nodeKey string, connected bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	node, ok := e.Registry.Node(nodeKey)
	if !ok {
		return
	}
	sta := e.Registry.Station(addr, true)
	si := e.Registry.StaInfoGet(sta, node, true, e.now)

	if connected {
		si.Connected = Connected
		si.ConnectedSince = e.now
		si.LastConnected = e.now
		node.NAssoc++
	} else if si.Connected == Connected {
		si.Connected = Disconnected
		node.NAssoc--
		if e.Driver != nil {
			_ = e.Driver.NotifyClientDisassoc(context.Background(), si)
		}
	}
}
