package steer

import "errors"

var (
	// ErrNoNRTemplate is returned when a node has no operator-supplied
	// neighbor-report template to render a per-request preference
	// subelement into.
	ErrNoNRTemplate = errors.New("steer: node has no neighbor-report template")

	// ErrSSIDMismatch is returned when a neighbor-report request crosses
	// an SSID boundary.
	ErrSSIDMismatch = errors.New("steer: node SSID does not match current node")

	// ErrUnknownNode is returned when a neighbor-report query names a
	// node key the registry has never seen.
	ErrUnknownNode = errors.New("steer: unknown node")
)
