// Package config manages steerd's configuration using koanf/v2.
//
// Supports YAML files and environment variables; there is no command-line
// flag provider.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/dantte-lp/steerd/internal/steer"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete steerd configuration.
type Config struct {
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	Driver  DriverConfig  `koanf:"driver"`
	Gossip  GossipConfig  `koanf:"gossip"`
	Steer   SteerConfig   `koanf:"steer"`
	Nodes   []NodeConfig  `koanf:"nodes"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// DriverConfig holds the D-Bus local-AP adapter configuration.
type DriverConfig struct {
	// PathPrefix is loaded and defaulted to "/org/steerd/hostapd1" but is
	// not passed to the driver: driver.Dial always uses its own built-in
	// prefix of the same value.
	PathPrefix string `koanf:"path_prefix"`
}

// GossipConfig holds the multicast gossip transport configuration.
type GossipConfig struct {
	// Group is the IPv4 multicast group address stations/nodes gossip
	// to, e.g. "239.10.10.10".
	Group string `koanf:"group"`
	// Port is the UDP port the gossip socket listens on and sends to.
	Port int `koanf:"port"`
	// Interface restricts multicast group membership to one NIC
	// (empty uses the OS default interface selection).
	Interface string `koanf:"interface"`
	// SendInterval is how often local node/station summaries are
	// gossiped out. It is independent of steer.remote_update_interval,
	// which the decision core carries but does not read.
	SendInterval time.Duration `koanf:"send_interval"`
}

// GroupIP parses Group as an IPv4 address.
func (gc GossipConfig) GroupIP() (net.IP, error) {
	ip := net.ParseIP(gc.Group)
	if ip == nil {
		return nil, fmt.Errorf("gossip.group %q: %w", gc.Group, ErrInvalidGossipGroup)
	}
	if ip.To4() == nil {
		return nil, fmt.Errorf("gossip.group %q: %w", gc.Group, ErrGossipGroupNotIPv4)
	}
	return ip, nil
}

// SteerConfig mirrors steer.Config field-for-field. Durations are declared
// as time.Duration here for YAML/env ergonomics ("5s" rather than a raw
// millisecond integer) and converted in ToSteerConfig.
type SteerConfig struct {
	LocalStaUpdate           time.Duration `koanf:"local_sta_update"`
	LocalStaTimeout          time.Duration `koanf:"local_sta_timeout"`
	StaBlockTimeout          time.Duration `koanf:"sta_block_timeout"`
	SeenPolicyTimeout        time.Duration `koanf:"seen_policy_timeout"`
	MeasurementReportTimeout time.Duration `koanf:"measurement_report_timeout"`
	RemoteUpdateInterval     time.Duration `koanf:"remote_update_interval"`
	RemoteNodeTimeout        time.Duration `koanf:"remote_node_timeout"`
	InitialConnectDelay      time.Duration `koanf:"initial_connect_delay"`
	ScanTimeout              time.Duration `koanf:"scan_timeout"`
	ScanInterval             time.Duration `koanf:"scan_interval"`
	SteerTriggerInterval     time.Duration `koanf:"steer_trigger_interval"`
	SteerRejectTimeout       time.Duration `koanf:"steer_reject_timeout"`
	RoamKickDelay            time.Duration `koanf:"roam_kick_delay"`
	MinSNRKickDelay          time.Duration `koanf:"min_snr_kick_delay"`
	LoadKickDelay            time.Duration `koanf:"load_kick_delay"`
	BandSteeringInterval     time.Duration `koanf:"band_steering_interval"`

	MinSNR              int `koanf:"min_snr"`
	MinConnectSNR       int `koanf:"min_connect_snr"`
	SignalDiffThreshold int `koanf:"signal_diff_threshold"`
	RoamScanSNR         int `koanf:"roam_scan_snr"`
	RoamTriggerSNR      int `koanf:"roam_trigger_snr"`
	BandSteeringMinSNR  int `koanf:"band_steering_min_snr"`

	MaxRetryBand           int `koanf:"max_retry_band"`
	MaxNeighborReports     int `koanf:"max_neighbor_reports"`
	RoamScanTries          int `koanf:"roam_scan_tries"`
	LoadKickMinClients     int `koanf:"load_kick_min_clients"`
	BandSteeringThreshold  int `koanf:"band_steering_threshold"`
	LoadBalancingThreshold int `koanf:"load_balancing_threshold"`

	LoadKickThreshold  int `koanf:"load_kick_threshold"`
	NRPriorityInterval int `koanf:"nr_priority_interval"`

	CandidateAcceptanceFactor int `koanf:"candidate_acceptance_factor"`

	AssocSteering   bool `koanf:"assoc_steering"`
	ProbeSteering   bool `koanf:"probe_steering"`
	LoadKickEnabled bool `koanf:"load_kick_enabled"`
	IPv6            bool `koanf:"ipv6"`
	LocalMode       bool `koanf:"local_mode"`

	LoadKickReasonCode int `koanf:"load_kick_reason_code"`
}

// ToSteerConfig converts the YAML/env-friendly SteerConfig into the
// millisecond-integer steer.Config the decision core consumes.
func (sc SteerConfig) ToSteerConfig() steer.Config {
	return steer.Config{
		LocalStaUpdate:           sc.LocalStaUpdate.Milliseconds(),
		LocalStaTimeout:          sc.LocalStaTimeout.Milliseconds(),
		StaBlockTimeout:          sc.StaBlockTimeout.Milliseconds(),
		SeenPolicyTimeout:        sc.SeenPolicyTimeout.Milliseconds(),
		MeasurementReportTimeout: sc.MeasurementReportTimeout.Milliseconds(),
		RemoteUpdateInterval:     sc.RemoteUpdateInterval.Milliseconds(),
		RemoteNodeTimeout:        sc.RemoteNodeTimeout.Milliseconds(),
		InitialConnectDelay:      sc.InitialConnectDelay.Milliseconds(),
		ScanTimeout:              sc.ScanTimeout.Milliseconds(),
		ScanInterval:             sc.ScanInterval.Milliseconds(),
		SteerTriggerInterval:     sc.SteerTriggerInterval.Milliseconds(),
		SteerRejectTimeout:       sc.SteerRejectTimeout.Milliseconds(),
		RoamKickDelay:            sc.RoamKickDelay.Milliseconds(),
		MinSNRKickDelay:          sc.MinSNRKickDelay.Milliseconds(),
		LoadKickDelay:            sc.LoadKickDelay.Milliseconds(),
		BandSteeringInterval:     sc.BandSteeringInterval.Milliseconds(),

		MinSNR:              sc.MinSNR,
		MinConnectSNR:       sc.MinConnectSNR,
		SignalDiffThreshold: sc.SignalDiffThreshold,
		RoamScanSNR:         sc.RoamScanSNR,
		RoamTriggerSNR:      sc.RoamTriggerSNR,
		BandSteeringMinSNR:  sc.BandSteeringMinSNR,

		MaxRetryBand:           sc.MaxRetryBand,
		MaxNeighborReports:     sc.MaxNeighborReports,
		RoamScanTries:          sc.RoamScanTries,
		LoadKickMinClients:     sc.LoadKickMinClients,
		BandSteeringThreshold:  sc.BandSteeringThreshold,
		LoadBalancingThreshold: sc.LoadBalancingThreshold,

		LoadKickThreshold:  sc.LoadKickThreshold,
		NRPriorityInterval: sc.NRPriorityInterval,

		CandidateAcceptanceFactor: sc.CandidateAcceptanceFactor,

		AssocSteering:   sc.AssocSteering,
		ProbeSteering:   sc.ProbeSteering,
		LoadKickEnabled: sc.LoadKickEnabled,
		IPv6:            sc.IPv6,
		LocalMode:       sc.LocalMode,

		LoadKickReasonCode: sc.LoadKickReasonCode,
	}
}

// NodeConfig declares one local AP (BSS) this steerd instance controls
// directly through the D-Bus driver adapter.
type NodeConfig struct {
	// Key is the BSSID, used both as the registry key and (sanitized)
	// the D-Bus object path suffix.
	Key string `koanf:"key"`

	SSID     string `koanf:"ssid"`
	FreqMHz  int    `koanf:"freq_mhz"`
	Channel  uint8  `koanf:"channel"`
	OpClass  uint8  `koanf:"op_class"`
	MaxAssoc int    `koanf:"max_assoc"`

	// ObjectPath overrides the driver's default sanitized-BSSID object
	// path, for deployments where hostapd registers under a
	// non-default path.
	ObjectPath string `koanf:"object_path"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults. The
// Steer section mirrors steer.DefaultConfig(), converted to durations.
func DefaultConfig() *Config {
	sd := steer.DefaultConfig()
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Driver: DriverConfig{
			PathPrefix: "/org/steerd/hostapd1",
		},
		Gossip: GossipConfig{
			Group:        "239.10.10.10",
			Port:         23999,
			SendInterval: 1 * time.Second,
		},
		Steer: SteerConfig{
			LocalStaUpdate:           time.Duration(sd.LocalStaUpdate) * time.Millisecond,
			LocalStaTimeout:          time.Duration(sd.LocalStaTimeout) * time.Millisecond,
			StaBlockTimeout:          time.Duration(sd.StaBlockTimeout) * time.Millisecond,
			SeenPolicyTimeout:        time.Duration(sd.SeenPolicyTimeout) * time.Millisecond,
			MeasurementReportTimeout: time.Duration(sd.MeasurementReportTimeout) * time.Millisecond,
			RemoteUpdateInterval:     time.Duration(sd.RemoteUpdateInterval) * time.Millisecond,
			RemoteNodeTimeout:        time.Duration(sd.RemoteNodeTimeout) * time.Millisecond,
			InitialConnectDelay:      time.Duration(sd.InitialConnectDelay) * time.Millisecond,
			ScanTimeout:              time.Duration(sd.ScanTimeout) * time.Millisecond,
			ScanInterval:             time.Duration(sd.ScanInterval) * time.Millisecond,
			SteerTriggerInterval:     time.Duration(sd.SteerTriggerInterval) * time.Millisecond,
			SteerRejectTimeout:       time.Duration(sd.SteerRejectTimeout) * time.Millisecond,
			RoamKickDelay:            time.Duration(sd.RoamKickDelay) * time.Millisecond,
			MinSNRKickDelay:          time.Duration(sd.MinSNRKickDelay) * time.Millisecond,
			LoadKickDelay:            time.Duration(sd.LoadKickDelay) * time.Millisecond,
			BandSteeringInterval:     time.Duration(sd.BandSteeringInterval) * time.Millisecond,

			MinSNR:              sd.MinSNR,
			MinConnectSNR:       sd.MinConnectSNR,
			SignalDiffThreshold: sd.SignalDiffThreshold,
			RoamScanSNR:         sd.RoamScanSNR,
			RoamTriggerSNR:      sd.RoamTriggerSNR,
			BandSteeringMinSNR:  sd.BandSteeringMinSNR,

			MaxRetryBand:           sd.MaxRetryBand,
			MaxNeighborReports:     sd.MaxNeighborReports,
			RoamScanTries:          sd.RoamScanTries,
			LoadKickMinClients:     sd.LoadKickMinClients,
			BandSteeringThreshold:  sd.BandSteeringThreshold,
			LoadBalancingThreshold: sd.LoadBalancingThreshold,

			LoadKickThreshold:  sd.LoadKickThreshold,
			NRPriorityInterval: sd.NRPriorityInterval,

			CandidateAcceptanceFactor: sd.CandidateAcceptanceFactor,

			AssocSteering:   sd.AssocSteering,
			ProbeSteering:   sd.ProbeSteering,
			LoadKickEnabled: sd.LoadKickEnabled,
			IPv6:            sd.IPv6,
			LocalMode:       sd.LocalMode,

			LoadKickReasonCode: sd.LoadKickReasonCode,
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for steerd configuration.
// Variables are named STEERD_<section>_<key>, e.g., STEERD_GOSSIP_PORT.
const envPrefix = "STEERD_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (STEERD_ prefix), and merges on top of DefaultConfig().
// Missing fields inherit defaults.
//
// Uses koanf/v2 with file + env providers and YAML parser.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms STEERD_GOSSIP_PORT -> gossip.port.
// Strips the STEERD_ prefix, lowercases, and replaces _ with .
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", ".")
}

// loadDefaults marshals the default config into koanf as the base layer.
// Nodes are intentionally left out: there is no sane default AP list, so
// an empty nodes section stays empty until the YAML file supplies one.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"log.level":               defaults.Log.Level,
		"log.format":              defaults.Log.Format,
		"metrics.addr":            defaults.Metrics.Addr,
		"metrics.path":            defaults.Metrics.Path,
		"driver.path_prefix":      defaults.Driver.PathPrefix,
		"gossip.group":            defaults.Gossip.Group,
		"gossip.port":             defaults.Gossip.Port,
		"gossip.interface":        defaults.Gossip.Interface,
		"gossip.send_interval":    defaults.Gossip.SendInterval.String(),
		"steer.load_kick_enabled": defaults.Steer.LoadKickEnabled,
		"steer.assoc_steering":    defaults.Steer.AssocSteering,
		"steer.probe_steering":    defaults.Steer.ProbeSteering,
		"steer.ipv6":              defaults.Steer.IPv6,
		"steer.local_mode":        defaults.Steer.LocalMode,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return setSteerDurationDefaults(k, defaults.Steer)
}

// setSteerDurationDefaults sets the remaining steer.* duration and numeric
// defaults, split out from loadDefaults purely to keep that map literal
// from growing unreadably long.
func setSteerDurationDefaults(k *koanf.Koanf, sc SteerConfig) error {
	durations := map[string]time.Duration{
		"steer.local_sta_update":           sc.LocalStaUpdate,
		"steer.local_sta_timeout":          sc.LocalStaTimeout,
		"steer.sta_block_timeout":          sc.StaBlockTimeout,
		"steer.seen_policy_timeout":        sc.SeenPolicyTimeout,
		"steer.measurement_report_timeout": sc.MeasurementReportTimeout,
		"steer.remote_update_interval":     sc.RemoteUpdateInterval,
		"steer.remote_node_timeout":        sc.RemoteNodeTimeout,
		"steer.initial_connect_delay":      sc.InitialConnectDelay,
		"steer.scan_timeout":               sc.ScanTimeout,
		"steer.scan_interval":              sc.ScanInterval,
		"steer.steer_trigger_interval":     sc.SteerTriggerInterval,
		"steer.steer_reject_timeout":       sc.SteerRejectTimeout,
		"steer.roam_kick_delay":            sc.RoamKickDelay,
		"steer.min_snr_kick_delay":         sc.MinSNRKickDelay,
		"steer.load_kick_delay":            sc.LoadKickDelay,
		"steer.band_steering_interval":     sc.BandSteeringInterval,
	}
	for key, d := range durations {
		if err := k.Set(key, d.String()); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	ints := map[string]int{
		"steer.min_snr":                     sc.MinSNR,
		"steer.min_connect_snr":              sc.MinConnectSNR,
		"steer.signal_diff_threshold":        sc.SignalDiffThreshold,
		"steer.roam_scan_snr":                sc.RoamScanSNR,
		"steer.roam_trigger_snr":             sc.RoamTriggerSNR,
		"steer.band_steering_min_snr":        sc.BandSteeringMinSNR,
		"steer.max_retry_band":               sc.MaxRetryBand,
		"steer.max_neighbor_reports":         sc.MaxNeighborReports,
		"steer.roam_scan_tries":              sc.RoamScanTries,
		"steer.load_kick_min_clients":        sc.LoadKickMinClients,
		"steer.band_steering_threshold":      sc.BandSteeringThreshold,
		"steer.load_balancing_threshold":     sc.LoadBalancingThreshold,
		"steer.load_kick_threshold":          sc.LoadKickThreshold,
		"steer.nr_priority_interval":         sc.NRPriorityInterval,
		"steer.candidate_acceptance_factor":  sc.CandidateAcceptanceFactor,
		"steer.load_kick_reason_code":        sc.LoadKickReasonCode,
	}
	for key, v := range ints {
		if err := k.Set(key, v); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyMetricsAddr indicates the metrics listen address is empty.
	ErrEmptyMetricsAddr = errors.New("metrics.addr must not be empty")

	// ErrInvalidGossipGroup indicates gossip.group does not parse as an IP.
	ErrInvalidGossipGroup = errors.New("gossip.group is not a valid IP address")

	// ErrGossipGroupNotIPv4 indicates gossip.group is not an IPv4 address.
	ErrGossipGroupNotIPv4 = errors.New("gossip.group must be an IPv4 multicast address")

	// ErrInvalidGossipPort indicates gossip.port is out of range.
	ErrInvalidGossipPort = errors.New("gossip.port must be between 1 and 65535")

	// ErrEmptyNodeKey indicates a node entry has no key (BSSID).
	ErrEmptyNodeKey = errors.New("node key must not be empty")

	// ErrDuplicateNodeKey indicates two node entries share the same key.
	ErrDuplicateNodeKey = errors.New("duplicate node key")

	// ErrInvalidMaxNeighborReports indicates steer.max_neighbor_reports is zero.
	ErrInvalidMaxNeighborReports = errors.New("steer.max_neighbor_reports must be >= 1")
)

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.Metrics.Addr == "" {
		return ErrEmptyMetricsAddr
	}

	if _, err := cfg.Gossip.GroupIP(); err != nil {
		return err
	}

	if cfg.Gossip.Port < 1 || cfg.Gossip.Port > 65535 {
		return ErrInvalidGossipPort
	}

	if cfg.Steer.MaxNeighborReports < 1 {
		return ErrInvalidMaxNeighborReports
	}

	if err := validateNodes(cfg.Nodes); err != nil {
		return err
	}

	return nil
}

// validateNodes checks each declarative local-node entry for correctness.
func validateNodes(nodes []NodeConfig) error {
	seen := make(map[string]struct{}, len(nodes))

	for i, nc := range nodes {
		if nc.Key == "" {
			return fmt.Errorf("nodes[%d]: %w", i, ErrEmptyNodeKey)
		}

		if _, dup := seen[nc.Key]; dup {
			return fmt.Errorf("nodes[%d] key %q: %w", i, nc.Key, ErrDuplicateNodeKey)
		}
		seen[nc.Key] = struct{}{}
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
