package steer

// Config holds every tunable the decision core recognizes (spec.md §6's
// enumerated tunable set). internal/config loads these from YAML/env and
// converts into this struct; nothing in this package touches koanf.
type Config struct {
	// Timing, all in milliseconds.
	LocalStaUpdate           int64
	LocalStaTimeout          int64
	StaBlockTimeout          int64
	SeenPolicyTimeout        int64
	MeasurementReportTimeout int64
	RemoteUpdateInterval     int64
	RemoteNodeTimeout        int64
	InitialConnectDelay      int64
	ScanTimeout              int64
	ScanInterval             int64
	SteerTriggerInterval     int64
	SteerRejectTimeout       int64
	RoamKickDelay            int64
	MinSNRKickDelay          int64
	LoadKickDelay            int64
	BandSteeringInterval     int64

	// SNR/signal, dB/dBm.
	MinSNR             int
	MinConnectSNR      int
	SignalDiffThreshold int
	RoamScanSNR        int
	RoamTriggerSNR     int
	BandSteeringMinSNR int

	// Counts.
	MaxRetryBand            int
	MaxNeighborReports      int
	RoamScanTries           int
	LoadKickMinClients      int
	BandSteeringThreshold   int
	LoadBalancingThreshold  int

	// Load, 0..100.
	LoadKickThreshold int

	// NRPriorityInterval buckets a node's load into penalty steps when
	// deriving its neighbor-report preference subelement (rrm.go).
	NRPriorityInterval int

	// Factors, percent.
	CandidateAcceptanceFactor int

	// Flags.
	AssocSteering   bool
	ProbeSteering   bool
	LoadKickEnabled bool
	IPv6            bool
	LocalMode       bool

	// Codes.
	LoadKickReasonCode int
}

// DefaultConfig returns the tunable defaults usteer deployments converge on
// in practice: conservative roam/kick thresholds that avoid thrashing on a
// freshly joined cluster.
func DefaultConfig() Config {
	return Config{
		LocalStaUpdate:           1_000,
		LocalStaTimeout:          30_000,
		StaBlockTimeout:          30_000,
		SeenPolicyTimeout:        30_000,
		MeasurementReportTimeout: 15_000,
		RemoteUpdateInterval:     1_000,
		RemoteNodeTimeout:        30_000,
		InitialConnectDelay:      0,
		ScanTimeout:              10_000,
		ScanInterval:             30_000,
		SteerTriggerInterval:     30_000,
		SteerRejectTimeout:       30_000,
		RoamKickDelay:            5_000,
		MinSNRKickDelay:          5_000,
		LoadKickDelay:            10_000,
		BandSteeringInterval:     0,

		MinSNR:              0,
		MinConnectSNR:       0,
		SignalDiffThreshold: 0,
		RoamScanSNR:         0,
		RoamTriggerSNR:      0,
		BandSteeringMinSNR:  0,

		MaxRetryBand:           5,
		MaxNeighborReports:     8,
		RoamScanTries:          3,
		LoadKickMinClients:     10,
		BandSteeringThreshold:  0,
		LoadBalancingThreshold: 0,

		LoadKickThreshold: 0,

		NRPriorityInterval: 10,

		CandidateAcceptanceFactor: 20,

		AssocSteering:   true,
		ProbeSteering:   false,
		LoadKickEnabled: false,
		IPv6:            false,
		LocalMode:       false,

		LoadKickReasonCode: 5, // WLAN_REASON_DISASSOC_AP_BUSY
	}
}

// snrToSignal converts an SNR threshold to an absolute signal threshold for
// node, using its noise floor (defaulting per scoring.go's noiseOrDefault).
func snrToSignal(node *Node, snr int) int {
	if snr == 0 {
		return 0
	}
	return noiseOrDefault(node.Noise) + snr
}
