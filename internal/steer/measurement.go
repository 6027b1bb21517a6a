package steer

// MeasurementReport is a beacon-report observation of one station's signal
// at one node, reported by the driver adapter in response to a scan job.
type MeasurementReport struct {
	Sta  *Station
	Node *Node

	Timestamp Time
	RCPI      int
	RSNI      int
}

// RSSI converts an RCPI value (0..220, per 802.11k, half-dBm steps above a
// -110 dBm floor) to a dBm signal estimate.
func (m *MeasurementReport) RSSI() int {
	return m.RCPI/2 - 110
}

// AddMeasurement upserts the (sta, node) measurement report, replacing any
// prior report for the same pair, and records the report's RSSI as the
// signal of sta's sta_info on node (creating it if needed). Reports are
// dropped later by expireMeasurements, called from Tick.
func (e *Engine) AddMeasurement(sta *Station, node *Node, rcpi, rsni int, now Time) *MeasurementReport {
	si := e.Registry.StaInfoGet(sta, node, true, now)
	si.Seen = now
	for _, m := range sta.measurements {
		if m.Node == node {
			m.Timestamp = now
			m.RCPI = rcpi
			m.RSNI = rsni
			si.Signal = m.RSSI()
			return m
		}
	}

	m := &MeasurementReport{Sta: sta, Node: node, Timestamp: now, RCPI: rcpi, RSNI: rsni}
	sta.measurements = append(sta.measurements, m)
	si.Signal = m.RSSI()
	return m
}

// expireMeasurements drops measurement reports older than
// measurement_report_timeout, called from the engine's periodic sweep.
func (e *Engine) expireMeasurements(sta *Station, now Time) {
	timeout := int64(e.Config.MeasurementReportTimeout)
	sta.measurements = filterMeasurements(sta.measurements, func(m *MeasurementReport) bool {
		return now.Sub(m.Timestamp) < timeout
	})
}

// MeasurementFor returns the most recent measurement report for (sta, node),
// if any.
func MeasurementFor(sta *Station, node *Node) (*MeasurementReport, bool) {
	for _, m := range sta.measurements {
		if m.Node == node {
			return m, true
		}
	}
	return nil, false
}
