package steer

import (
	"context"
	"encoding/hex"

	"github.com/dantte-lp/steerd/internal/tlv"
)

// rrmDetermineNodePriority computes the 802.11k neighbor-report preference
// byte (0..255) node should carry when advertised to si, grounded on
// rrm.c's usteer_rrm_determine_node_priority.
//
// When node is the station's current node, a "stay connected" bonus of
// 255 is returned outright if its signal clears the best available
// roam/min threshold and it isn't itself load-kick eligible — this is the
// supplemented stay-connected bias noted in SPEC_FULL.md, carried over
// unchanged from the upstream behavior.
func rrmDetermineNodePriority(cfg *Config, currentNode, node *Node, si *StaInfo) uint8 {
	if si != nil && currentNode == node {
		var minSignal int
		switch {
		case cfg.RoamScanSNR != 0:
			minSignal = snrToSignal(currentNode, cfg.RoamScanSNR)
		case cfg.RoamTriggerSNR != 0:
			minSignal = snrToSignal(currentNode, cfg.RoamTriggerSNR)
		case cfg.MinSNR != 0:
			minSignal = snrToSignal(currentNode, cfg.MinSNR)
		}

		signalOK := minSignal == 0 || si.Signal > minSignal
		loadOK := currentNode.Load < cfg.LoadKickThreshold || currentNode.NAssoc < cfg.LoadKickMinClients
		if signalOK && loadOK {
			return 255
		}
	}

	interval := cfg.NRPriorityInterval
	if interval == 0 {
		interval = 1
	}
	penalty := (node.Load / interval) * interval

	priority := 128
	if node.FreqMHz > 4000 {
		priority++
	}

	priority -= penalty
	if priority < 0 {
		return 0
	}
	if priority > 255 {
		return 255
	}
	return uint8(priority)
}

// RRMNeighborReport renders node's advertised neighbor-report template
// with its candidate-preference subelement overlaid for si (rrm.c's
// usteer_rrm_get_nr_data). It fails if node has no template, or if node's
// SSID doesn't match currentNode's (a remote node's neighbor report is
// only useful to stations already on the same network).
func RRMNeighborReport(cfg *Config, currentNode, node *Node, si *StaInfo) ([]byte, error) {
	if len(node.NRTemplate) == 0 {
		return nil, ErrNoNRTemplate
	}
	if node.SSID != currentNode.SSID {
		return nil, ErrSSIDMismatch
	}

	buf := append([]byte(nil), node.NRTemplate...)
	priority := rrmDetermineNodePriority(cfg, currentNode, node, si)

	if err := tlv.NRSetSubelement(buf, tlv.PreferenceSubelement, []byte{priority}); err != nil {
		return nil, err
	}
	return buf, nil
}

// refreshNRTemplate fetches node's advertised neighbor-report template
// from the driver and decodes it into node.NRTemplate, unless a template
// has already been cached. Called with Engine.mu held, from
// NeighborReportReply, the same way kickClient/requestBSSTransition issue
// synchronous driver calls from an already-locked entry point.
func (e *Engine) refreshNRTemplate(node *Node) error {
	if len(node.NRTemplate) != 0 {
		return nil
	}
	tmpl, err := e.Driver.GetRRMNRTemplate(context.Background(), node)
	if err != nil {
		return err
	}
	raw, err := hex.DecodeString(tmpl.HexNR)
	if err != nil {
		return err
	}
	node.NRTemplate = raw
	return nil
}

// NeighborReportReply renders the 802.11k neighbor-report reply hostapd
// sends back to si in response to a station's own Neighbor Report
// Request: the ranked candidate list for si's current node (rrm.c's
// usteer_rrm_get_nr_data applied across usteer_candidate_list_add_for_node),
// each entry's template fetched from the driver on demand and rendered
// with its preference subelement overlaid. A candidate whose template
// can't be fetched or rendered is skipped rather than failing the whole
// reply, since hostapd still needs an answer for the candidates that did
// resolve.
func (e *Engine) NeighborReportReply(addr StationAddr, nodeKey string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	node, ok := e.Registry.Node(nodeKey)
	if !ok {
		return nil, ErrUnknownNode
	}

	var si *StaInfo
	if sta := e.Registry.Station(addr, false); sta != nil {
		si = e.Registry.StaInfoGet(sta, node, false, e.currentTime())
	}

	cl := BuildForNode(e.Registry, node, RatingRegular, e.Config.MaxNeighborReports)

	var out []byte
	for _, rc := range cl.Entries() {
		if err := e.refreshNRTemplate(rc.Node); err != nil {
			continue
		}
		nr, err := RRMNeighborReport(e.Config, node, rc.Node, si)
		if err != nil {
			continue
		}
		out = append(out, nr...)
	}
	return out, nil
}
