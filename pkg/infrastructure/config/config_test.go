package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected default config to be valid: %v", err)
	}
	if cfg.Planning.DefaultHorizonDays != 9 {
		t.Errorf("Expected default horizon 9, got %d", cfg.Planning.DefaultHorizonDays)
	}
	if len(cfg.Simulation.CriticalMaterials) != 3 {
		t.Errorf("Expected 3 critical materials, got %v", cfg.Simulation.CriticalMaterials)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plantsim.yaml")
	content := `
simulation:
  tick_interval: 250ms
  seed: 42
planning:
  default_horizon_days: 5
journal:
  backend: pebble
  pebble_dir: /tmp/journal
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Expected load to succeed: %v", err)
	}
	if cfg.Simulation.TickInterval.Std() != 250*time.Millisecond {
		t.Errorf("Expected tick interval 250ms, got %s", cfg.Simulation.TickInterval.Std())
	}
	if cfg.Simulation.Seed != 42 {
		t.Errorf("Expected seed 42, got %d", cfg.Simulation.Seed)
	}
	if cfg.Planning.DefaultHorizonDays != 5 {
		t.Errorf("Expected horizon 5, got %d", cfg.Planning.DefaultHorizonDays)
	}
	// Unset fields keep their defaults
	if cfg.Simulation.UptimeAlertPct != 80 {
		t.Errorf("Expected default uptime threshold 80, got %v", cfg.Simulation.UptimeAlertPct)
	}
	if cfg.Journal.Backend != JournalPebble {
		t.Errorf("Expected pebble backend, got %s", cfg.Journal.Backend)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PLANTSIM_SEED":               "7",
		"PLANTSIM_TICK_INTERVAL":      "2s",
		"PLANTSIM_CRITICAL_MATERIALS": "M1, M2",
		"PLANTSIM_KAFKA_BROKERS":      "localhost:9092",
		"PLANTSIM_AUTO_PLACE_ON_TICK": "false",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := cfg.applyEnv(lookup); err != nil {
		t.Fatalf("Expected env overrides to apply: %v", err)
	}
	if cfg.Simulation.Seed != 7 {
		t.Errorf("Expected seed 7, got %d", cfg.Simulation.Seed)
	}
	if cfg.Simulation.TickInterval.Std() != 2*time.Second {
		t.Errorf("Expected 2s tick, got %s", cfg.Simulation.TickInterval.Std())
	}
	if strings.Join(cfg.Simulation.CriticalMaterials, ",") != "M1,M2" {
		t.Errorf("Expected critical materials M1,M2, got %v", cfg.Simulation.CriticalMaterials)
	}
	if cfg.Events.KafkaBrokers != "localhost:9092" {
		t.Errorf("Expected kafka brokers override, got %q", cfg.Events.KafkaBrokers)
	}
	if cfg.Replenishment.AutoPlaceOnTick {
		t.Error("Expected auto place to be disabled")
	}

	bad := Default()
	if err := bad.applyEnv(func(k string) (string, bool) {
		if k == "PLANTSIM_SEED" {
			return "abc", true
		}
		return "", false
	}); err == nil {
		t.Error("Expected invalid seed to fail")
	}
}

func TestValidate_Failures(t *testing.T) {
	testCases := []struct {
		name        string
		mutate      func(*Config)
		expectError string
	}{
		{
			"zero tick",
			func(c *Config) { c.Simulation.TickInterval = 0 },
			"simulation.tick_interval must be positive, got 0s",
		},
		{
			"zero horizon",
			func(c *Config) { c.Planning.DefaultHorizonDays = 0 },
			"planning.default_horizon_days must be at least 1, got 0",
		},
		{
			"pebble without dir",
			func(c *Config) { c.Journal.Backend = JournalPebble },
			"journal.pebble_dir is required for the pebble backend",
		},
		{
			"postgres without dsn",
			func(c *Config) { c.Journal.Backend = JournalPostgres },
			"journal.postgres_dsn is required for the postgres backend",
		},
		{
			"unknown backend",
			func(c *Config) { c.Journal.Backend = "mongo" },
			`unknown journal backend "mongo"`,
		},
		{
			"negative retention",
			func(c *Config) { c.Events.Retention = -1 },
			"events.retention cannot be negative, got -1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestProductProfile_Override(t *testing.T) {
	profiles := Default().Planning.Profiles

	he := profiles.ProductProfile("P-HE")
	if he.DefectRatePct != 2.5 || he.EnergyKWhPerUnit != 0.4 {
		t.Errorf("Expected P-HE override, got %+v", he)
	}
	other := profiles.ProductProfile("P-X")
	if other.DefectRatePct != 3.0 || other.EnergyKWhPerUnit != 0.35 {
		t.Errorf("Expected defaults, got %+v", other)
	}
}
