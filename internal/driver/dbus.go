// Package driver implements steer.Driver against a local AP control
// service reachable over D-Bus, the same transport shape wpa_supplicant
// and hostapd forks expose on Linux.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/dantte-lp/steerd/internal/steer"
)

// D-Bus service/interface names for the local AP control service. One
// object path exists per BSS; the mapping from a node key to its path is
// supplied by the caller through RegisterNode rather than derived, since
// hostapd's own path-naming scheme is a deployment detail this package
// doesn't need to reproduce.
const (
	serviceName          = "org.steerd.hostapd1"
	bssIface             = serviceName + ".BSS"
	defaultPathPrefix    = "/org/steerd/hostapd1"
	sigMeasurementReport = bssIface + ".MeasurementReport"
	sigBTMResponse       = bssIface + ".BTMResponse"
	sigAssoc             = bssIface + ".Assoc"
	sigDisassoc          = bssIface + ".Disassoc"

	// controlServiceName is steerd's own well-known name: the reverse
	// direction of the BSS binding above, used by hostapd to ask for an
	// admission decision synchronously (spec.md §6's CheckRequest, which
	// unlike every other Driver call must return before the 802.11
	// management frame it gates can be answered).
	controlServiceName = "org.steerd.steerd1"
	controlIface       = controlServiceName + ".Control"
	controlPath        = dbus.ObjectPath("/org/steerd/steerd1/Control")
)

var (
	// ErrNotConnected is returned by any call made before Dial succeeds.
	ErrNotConnected = errors.New("driver: not connected to D-Bus")
	// ErrUnknownNode is returned when a node key has no registered BSS
	// object path.
	ErrUnknownNode = errors.New("driver: unknown node")
)

// MatchSpec names a D-Bus signal subscription, mirroring the match rule
// fields libdbus/godbus expose (type=signal,interface=...,member=...).
type MatchSpec struct {
	Interface string
	Member    string
	Path      dbus.ObjectPath
}

func (m MatchSpec) options() []dbus.MatchOption {
	opts := []dbus.MatchOption{
		dbus.WithMatchInterface(m.Interface),
		dbus.WithMatchMember(m.Member),
	}
	if m.Path != "" {
		opts = append(opts, dbus.WithMatchObjectPath(m.Path))
	}
	return opts
}

// DBusDriver implements steer.Driver over the system bus. It owns no core
// state; every method either issues a D-Bus method call or, for inbound
// signals, decodes the payload and hands a fully-formed event to an
// Engine via its Handle* methods on a dedicated dispatch goroutine.
type DBusDriver struct {
	conn *dbus.Conn
	log  *slog.Logger

	pathPrefix string

	mu    sync.RWMutex
	paths map[string]dbus.ObjectPath // node key -> BSS object path
}

// Dial connects to the D-Bus system bus and returns a driver ready to have
// BSSes registered with RegisterNode.
func Dial(log *slog.Logger) (*DBusDriver, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("driver: connect system bus: %w", err)
	}
	return &DBusDriver{
		conn:       conn,
		log:        log,
		pathPrefix: defaultPathPrefix,
		paths:      make(map[string]dbus.ObjectPath),
	}, nil
}

// NewForTest returns a DBusDriver with no live bus connection, for
// exercising path/MAC helpers without a D-Bus daemon available. Mirrors
// the teacher's NewListenerFromConn escape hatch for unit tests.
func NewForTest() (*DBusDriver, error) {
	return &DBusDriver{
		pathPrefix: defaultPathPrefix,
		paths:      make(map[string]dbus.ObjectPath),
	}, nil
}

// Close closes the underlying bus connection.
func (d *DBusDriver) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

// RegisterNode tells the driver which object path answers for a node key,
// so later calls can address the right BSS. Called once per locally owned
// BSS at startup, and again whenever hostapd reloads a BSS onto a new
// path.
func (d *DBusDriver) RegisterNode(nodeKey string, path dbus.ObjectPath) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paths[nodeKey] = path
}

// DefaultObjectPath derives the conventional object path for a node key
// under this driver's path prefix, for callers that don't need a custom
// layout: any character D-Bus forbids in a path segment (anything but
// [A-Za-z0-9_]) is replaced with '_'.
func (d *DBusDriver) DefaultObjectPath(nodeKey string) dbus.ObjectPath {
	sanitized := make([]byte, len(nodeKey))
	for i := 0; i < len(nodeKey); i++ {
		c := nodeKey[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			sanitized[i] = c
		default:
			sanitized[i] = '_'
		}
	}
	return dbus.ObjectPath(d.pathPrefix + "/" + string(sanitized))
}

func (d *DBusDriver) pathFor(nodeKey string) (dbus.ObjectPath, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.paths[nodeKey]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownNode, nodeKey)
	}
	return p, nil
}

func (d *DBusDriver) object(nodeKey string) (dbus.BusObject, error) {
	if d.conn == nil {
		return nil, ErrNotConnected
	}
	path, err := d.pathFor(nodeKey)
	if err != nil {
		return nil, err
	}
	return d.conn.Object(serviceName, path), nil
}

// TriggerBeaconRequest implements steer.Driver.
func (d *DBusDriver) TriggerBeaconRequest(ctx context.Context, si *steer.StaInfo, mode steer.ScanMode, opClass, channel uint8) error {
	obj, err := d.object(si.Node.Key)
	if err != nil {
		return err
	}
	call := obj.CallWithContext(ctx, bssIface+".BeaconRequest", 0,
		FormatMAC(si.Sta.Addr), uint8(mode), opClass, channel)
	if call.Err != nil {
		return fmt.Errorf("driver: beacon request: %w", call.Err)
	}
	return nil
}

// BSSTransitionRequest implements steer.Driver.
func (d *DBusDriver) BSSTransitionRequest(ctx context.Context, si *steer.StaInfo, dialogToken uint8, disassocImminent, abridged bool, validityPeriod uint8, target *steer.Node) error {
	obj, err := d.object(si.Node.Key)
	if err != nil {
		return err
	}
	call := obj.CallWithContext(ctx, bssIface+".BSSTransitionRequest", 0,
		FormatMAC(si.Sta.Addr), dialogToken, disassocImminent, abridged, validityPeriod, target.Key)
	if call.Err != nil {
		return fmt.Errorf("driver: bss transition request: %w", call.Err)
	}
	return nil
}

// KickClient implements steer.Driver.
func (d *DBusDriver) KickClient(ctx context.Context, si *steer.StaInfo, reasonCode int) error {
	obj, err := d.object(si.Node.Key)
	if err != nil {
		return err
	}
	call := obj.CallWithContext(ctx, bssIface+".Deauthenticate", 0,
		FormatMAC(si.Sta.Addr), uint16(reasonCode))
	if call.Err != nil {
		return fmt.Errorf("driver: kick client: %w", call.Err)
	}
	return nil
}

// NotifyClientDisassoc implements steer.Driver.
func (d *DBusDriver) NotifyClientDisassoc(ctx context.Context, si *steer.StaInfo) error {
	obj, err := d.object(si.Node.Key)
	if err != nil {
		return err
	}
	call := obj.CallWithContext(ctx, bssIface+".NotifyDisassoc", 0, FormatMAC(si.Sta.Addr))
	if call.Err != nil {
		return fmt.Errorf("driver: notify disassoc: %w", call.Err)
	}
	return nil
}

// GetRRMNRTemplate implements steer.Driver.
func (d *DBusDriver) GetRRMNRTemplate(ctx context.Context, node *steer.Node) (steer.NRTemplate, error) {
	obj, err := d.object(node.Key)
	if err != nil {
		return steer.NRTemplate{}, err
	}
	var tmpl steer.NRTemplate
	call := obj.CallWithContext(ctx, bssIface+".GetRRMNRTemplate", 0)
	if call.Err != nil {
		return steer.NRTemplate{}, fmt.Errorf("driver: get rrm nr template: %w", call.Err)
	}
	if err := call.Store(&tmpl.BSSID, &tmpl.SSID, &tmpl.HexNR); err != nil {
		return steer.NRTemplate{}, fmt.Errorf("driver: decode rrm nr template: %w", err)
	}
	return tmpl, nil
}

// Run subscribes to the BSS signals this driver needs and dispatches them
// onto eng's Handle* methods until ctx is cancelled. It owns no core
// state and never touches eng outside of its exported Handle* entry
// points, each of which takes the engine's mutex.
func (d *DBusDriver) Run(ctx context.Context, eng *steer.Engine) error {
	if d.conn == nil {
		return ErrNotConnected
	}

	if err := d.exportControlService(eng); err != nil {
		return err
	}

	specs := []MatchSpec{
		{Interface: bssIface, Member: "MeasurementReport"},
		{Interface: bssIface, Member: "BTMResponse"},
		{Interface: bssIface, Member: "Assoc"},
		{Interface: bssIface, Member: "Disassoc"},
	}
	for _, spec := range specs {
		if err := d.conn.AddMatchSignalContext(ctx, spec.options()...); err != nil {
			return fmt.Errorf("driver: add match %s.%s: %w", spec.Interface, spec.Member, err)
		}
	}

	ch := make(chan *dbus.Signal, 64)
	d.conn.Signal(ch)
	defer d.conn.RemoveSignal(ch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-ch:
			if !ok {
				return nil
			}
			d.dispatch(eng, sig)
		}
	}
}

func (d *DBusDriver) dispatch(eng *steer.Engine, sig *dbus.Signal) {
	switch sig.Name {
	case sigMeasurementReport:
		d.handleMeasurementReport(eng, sig)
	case sigBTMResponse:
		d.handleBTMResponse(eng, sig)
	case sigAssoc:
		d.handleAssocChange(eng, sig, true)
	case sigDisassoc:
		d.handleAssocChange(eng, sig, false)
	default:
		d.log.Warn("driver: unhandled signal", "name", sig.Name)
	}
}

func (d *DBusDriver) handleMeasurementReport(eng *steer.Engine, sig *dbus.Signal) {
	if len(sig.Body) != 5 {
		d.log.Warn("driver: malformed measurement report signal", "body_len", len(sig.Body))
		return
	}
	nodeKey, ok := d.nodeKeyForPath(sig.Path)
	if !ok {
		d.log.Warn("driver: measurement report from unregistered path", "path", sig.Path)
		return
	}
	mac, ok1 := sig.Body[0].(string)
	_, ok2 := sig.Body[1].(byte) // op_class: reserved for a future per-channel report, not tracked yet.
	_, ok3 := sig.Body[2].(byte) // channel: ditto.
	rcpi, ok4 := sig.Body[3].(byte)
	rsni, ok5 := sig.Body[4].(byte)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		d.log.Warn("driver: measurement report signal type mismatch")
		return
	}
	addr, err := ParseMAC(mac)
	if err != nil {
		d.log.Warn("driver: measurement report bad mac", "mac", mac, "err", err)
		return
	}
	eng.HandleMeasurementReport(addr, nodeKey, int(rcpi), int(rsni))
}

func (d *DBusDriver) handleBTMResponse(eng *steer.Engine, sig *dbus.Signal) {
	if len(sig.Body) != 2 {
		return
	}
	mac, ok1 := sig.Body[0].(string)
	status, ok2 := sig.Body[1].(byte)
	if !ok1 || !ok2 {
		return
	}
	addr, err := ParseMAC(mac)
	if err != nil {
		d.log.Warn("driver: btm response bad mac", "mac", mac, "err", err)
		return
	}
	eng.HandleBSSTransitionResponse(addr, int(status))
}

func (d *DBusDriver) handleAssocChange(eng *steer.Engine, sig *dbus.Signal, connected bool) {
	nodeKey, ok := d.nodeKeyForPath(sig.Path)
	if !ok {
		d.log.Warn("driver: assoc change from unregistered path", "path", sig.Path)
		return
	}
	if len(sig.Body) != 1 {
		return
	}
	mac, ok1 := sig.Body[0].(string)
	if !ok1 {
		return
	}
	addr, err := ParseMAC(mac)
	if err != nil {
		d.log.Warn("driver: assoc change bad mac", "mac", mac, "err", err)
		return
	}
	eng.HandleAssocChange(addr, nodeKey, connected)
}

func (d *DBusDriver) nodeKeyForPath(path dbus.ObjectPath) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for key, p := range d.paths {
		if p == path {
			return key, true
		}
	}
	return "", false
}

// requestService is the D-Bus-exported object hostapd calls synchronously
// to get an admission verdict for a probe, auth, or assoc request. Unlike
// every other direction in this package it runs on the D-Bus server
// goroutine, not the driver's own dispatch goroutine — CheckRequest
// contends for Engine's internal mutex the same as Tick and every other
// Handle* method, so a pending management frame is always resolved
// against a consistent registry snapshot rather than one Tick is
// midway through mutating.
type requestService struct {
	eng *steer.Engine
}

// CheckRequest implements org.steerd.steerd1.Control.CheckRequest(mac
// string, bssid string, eventType byte, signal int32) (accept bool).
func (s *requestService) CheckRequest(mac, bssid string, eventType byte, signal int32) (bool, *dbus.Error) {
	addr, err := ParseMAC(mac)
	if err != nil {
		return false, dbus.MakeFailedError(err)
	}
	et, err := parseEventType(eventType)
	if err != nil {
		return false, dbus.MakeFailedError(err)
	}
	return s.eng.HandleRequest(addr, bssid, et, int(signal)), nil
}

// GetNeighborReport implements
// org.steerd.steerd1.Control.GetNeighborReport(mac string, bssid string)
// (report []byte). hostapd calls this synchronously when a station's own
// 802.11k Neighbor Report Request arrives and needs an answer built from
// steerd's live candidate list rather than a static cache.
func (s *requestService) GetNeighborReport(mac, bssid string) ([]byte, *dbus.Error) {
	addr, err := ParseMAC(mac)
	if err != nil {
		return nil, dbus.MakeFailedError(err)
	}
	report, err := s.eng.NeighborReportReply(addr, bssid)
	if err != nil {
		return nil, dbus.MakeFailedError(err)
	}
	return report, nil
}

func parseEventType(b byte) (steer.EventType, error) {
	switch steer.EventType(b) {
	case steer.EventProbe, steer.EventAssoc, steer.EventAuth:
		return steer.EventType(b), nil
	default:
		return 0, fmt.Errorf("driver: unknown event type %d", b)
	}
}

// exportControlService publishes the Control object and acquires
// controlServiceName on the bus, so hostapd's CheckRequest calls have
// somewhere to land.
func (d *DBusDriver) exportControlService(eng *steer.Engine) error {
	svc := &requestService{eng: eng}
	if err := d.conn.Export(svc, controlPath, controlIface); err != nil {
		return fmt.Errorf("driver: export control service: %w", err)
	}
	reply, err := d.conn.RequestName(controlServiceName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("driver: request name %s: %w", controlServiceName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("driver: name %s already owned", controlServiceName)
	}
	return nil
}

// FormatMAC renders a station address as a colon-separated hex MAC
// string, the wire format the control service uses in its D-Bus calls.
func FormatMAC(addr steer.StationAddr) string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		addr[0], addr[1], addr[2], addr[3], addr[4], addr[5])
}

// ParseMAC parses a colon-separated hex MAC string back into a station
// address. Returns an error if s isn't exactly six hex octets.
func ParseMAC(s string) (steer.StationAddr, error) {
	var addr steer.StationAddr
	const macLen = len("00:00:00:00:00:00")
	if len(s) != macLen {
		return addr, fmt.Errorf("parse mac %q: want %d characters, got %d", s, macLen, len(s))
	}
	n, err := fmt.Sscanf(s, "%02x:%02x:%02x:%02x:%02x:%02x",
		&addr[0], &addr[1], &addr[2], &addr[3], &addr[4], &addr[5])
	if err != nil {
		return addr, fmt.Errorf("parse mac %q: %w", s, err)
	}
	if n != 6 {
		return addr, fmt.Errorf("parse mac %q: got %d fields, want 6", s, n)
	}
	return addr, nil
}
