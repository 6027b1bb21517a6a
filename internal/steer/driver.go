package steer

import "context"

// ScanMode selects how the driver adapter should probe for a beacon
// measurement.
type ScanMode uint8

const (
	ScanPassive ScanMode = iota
	ScanActive
	ScanTable
)

func (m ScanMode) String() string {
	switch m {
	case ScanPassive:
		return "passive"
	case ScanActive:
		return "active"
	case ScanTable:
		return "table"
	default:
		return "unknown"
	}
}

// NRTemplate is the opaque 3-tuple a driver adapter returns for a node's
// neighbor-report advertisement (spec.md §6's get_rrm_nr_template).
type NRTemplate struct {
	BSSID string
	SSID  string
	HexNR string
}

// Driver is the interface the core uses to talk to the local radio stack.
// Every method is asynchronous: a call returns as soon as the request is
// handed off, and results (if any) arrive back into the engine through its
// Handle* methods, never as a return value here.
type Driver interface {
	// TriggerBeaconRequest asks the station to perform a beacon
	// measurement of op_class/channel using mode. The result arrives
	// later as a measurement report via Engine.HandleMeasurementReport.
	TriggerBeaconRequest(ctx context.Context, si *StaInfo, mode ScanMode, opClass, channel uint8) error

	// BSSTransitionRequest sends an 802.11v BSS Transition Management
	// request steering si toward target. The response arrives later as a
	// status code via Engine.HandleBSSTransitionResponse.
	BSSTransitionRequest(ctx context.Context, si *StaInfo, dialogToken uint8, disassocImminent, abridged bool, validityPeriod uint8, target *Node) error

	// KickClient forcibly disassociates si.
	KickClient(ctx context.Context, si *StaInfo, reasonCode int) error

	// NotifyClientDisassoc tells the driver a station has left, for
	// bookkeeping that lives outside the core (e.g. airtime accounting).
	NotifyClientDisassoc(ctx context.Context, si *StaInfo) error

	// GetRRMNRTemplate fetches node's advertised neighbor-report
	// template.
	GetRRMNRTemplate(ctx context.Context, node *Node) (NRTemplate, error)
}
