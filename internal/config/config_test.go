package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dantte-lp/steerd/internal/config"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "steerd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}

	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9100")
	}

	if cfg.Gossip.Group != "239.10.10.10" {
		t.Errorf("Gossip.Group = %q, want %q", cfg.Gossip.Group, "239.10.10.10")
	}

	if cfg.Gossip.Port != 23999 {
		t.Errorf("Gossip.Port = %d, want %d", cfg.Gossip.Port, 23999)
	}

	if cfg.Steer.MaxNeighborReports != 8 {
		t.Errorf("Steer.MaxNeighborReports = %d, want %d", cfg.Steer.MaxNeighborReports, 8)
	}

	if err := config.Validate(cfg); err != nil {
		t.Errorf("DefaultConfig() failed validation: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	t.Parallel()

	yamlContent := `
log:
  level: "debug"
  format: "text"
metrics:
  addr: ":9200"
gossip:
  group: "239.1.2.3"
  port: 24100
  send_interval: "2s"
steer:
  min_snr: 5
  load_kick_enabled: true
nodes:
  - key: "aa:bb:cc:dd:ee:ff"
    ssid: "corp"
    freq_mhz: 5180
    channel: 36
    max_assoc: 32
`

	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}

	if cfg.Metrics.Addr != ":9200" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9200")
	}

	if cfg.Gossip.Group != "239.1.2.3" {
		t.Errorf("Gossip.Group = %q, want %q", cfg.Gossip.Group, "239.1.2.3")
	}

	if cfg.Gossip.SendInterval != 2*time.Second {
		t.Errorf("Gossip.SendInterval = %v, want %v", cfg.Gossip.SendInterval, 2*time.Second)
	}

	if !cfg.Steer.LoadKickEnabled {
		t.Errorf("Steer.LoadKickEnabled = false, want true")
	}

	if cfg.Steer.MinSNR != 5 {
		t.Errorf("Steer.MinSNR = %d, want 5", cfg.Steer.MinSNR)
	}

	// Steer defaults not present in the YAML must survive from DefaultConfig.
	if cfg.Steer.MaxNeighborReports != 8 {
		t.Errorf("Steer.MaxNeighborReports = %d, want %d (inherited default)", cfg.Steer.MaxNeighborReports, 8)
	}

	if len(cfg.Nodes) != 1 {
		t.Fatalf("len(Nodes) = %d, want 1", len(cfg.Nodes))
	}
	if cfg.Nodes[0].Key != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("Nodes[0].Key = %q, want %q", cfg.Nodes[0].Key, "aa:bb:cc:dd:ee:ff")
	}
	if cfg.Nodes[0].MaxAssoc != 32 {
		t.Errorf("Nodes[0].MaxAssoc = %d, want 32", cfg.Nodes[0].MaxAssoc)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeTemp(t, "gossip:\n  port: 24100\n")

	t.Setenv("STEERD_GOSSIP_PORT", "25000")
	t.Setenv("STEERD_LOG_LEVEL", "warn")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.Gossip.Port != 25000 {
		t.Errorf("Gossip.Port = %d, want 25000 (env override)", cfg.Gossip.Port)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q (env override)", cfg.Log.Level, "warn")
	}
}

func TestValidateRejectsInvalidGossipGroup(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Gossip.Group = "not-an-ip"

	if err := config.Validate(cfg); err == nil {
		t.Fatal("expected validation error for invalid gossip group")
	}
}

func TestValidateRejectsNonIPv4GossipGroup(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Gossip.Group = "ff02::1"

	if err := config.Validate(cfg); err == nil {
		t.Fatal("expected validation error for non-IPv4 gossip group")
	}
}

func TestValidateRejectsOutOfRangeGossipPort(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Gossip.Port = 70000

	if err := config.Validate(cfg); err == nil {
		t.Fatal("expected validation error for out-of-range gossip port")
	}
}

func TestValidateRejectsDuplicateNodeKeys(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Nodes = []config.NodeConfig{
		{Key: "aa:bb:cc:dd:ee:ff"},
		{Key: "aa:bb:cc:dd:ee:ff"},
	}

	if err := config.Validate(cfg); err == nil {
		t.Fatal("expected validation error for duplicate node keys")
	}
}

func TestValidateRejectsEmptyNodeKey(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Nodes = []config.NodeConfig{{Key: ""}}

	if err := config.Validate(cfg); err == nil {
		t.Fatal("expected validation error for empty node key")
	}
}

func TestToSteerConfigConvertsDurationsToMilliseconds(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Steer.LocalStaUpdate = 1500 * time.Millisecond

	sc := cfg.Steer.ToSteerConfig()
	if sc.LocalStaUpdate != 1500 {
		t.Errorf("LocalStaUpdate = %d, want 1500", sc.LocalStaUpdate)
	}
}
