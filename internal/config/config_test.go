package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

const validConfigYAML = `
simulation:
  delta_t: 0.003968
  price_tick_hz: 1
  news_tick_hz: 1
  bot_refresh_hz: 1
  generator_interval_sec: 5
  broadcast_hz: 2
  rand_seed: 42
risk:
  max_order_size: 500
  max_volume_per_minute: 1000
  max_position: 5000
  reversal_window: 30s
  reversal_qty: 100
  rate_limit_window: 60s
  starting_cash: 500000
news:
  bucket_size_ms: 100000
bots:
  base_spread: 0.005
  stress_coef: 0.01
  inventory_coef: 0.0001
  noise_sigma: 0.0005
  mean_reversion: 0.03
  shock_sigma_frac: 0.0045
  inventory_pressure_coef: 0.0005
  max_inventory: 200
  levels: 3
generator:
  user_id: generator
seed:
  path: seed/snapshot.json
server:
  addr: :8080
  metrics_enabled: true
logging:
  level: info
  format: text
`

func TestLoadValid(t *testing.T) {
	path := writeTestConfig(t, validConfigYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.Risk.MaxOrderSize != 500 {
		t.Errorf("Risk.MaxOrderSize = %d, want 500", cfg.Risk.MaxOrderSize)
	}
	if cfg.Risk.ReversalWindow != 30*time.Second {
		t.Errorf("Risk.ReversalWindow = %v, want 30s", cfg.Risk.ReversalWindow)
	}
	if cfg.Generator.UserID != "generator" {
		t.Errorf("Generator.UserID = %q, want %q", cfg.Generator.UserID, "generator")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeTestConfig(t, validConfigYAML)

	t.Setenv("SIM_SEED_PATH", "/tmp/override-snapshot.json")
	t.Setenv("SIM_SERVER_ADDR", ":9999")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Seed.Path != "/tmp/override-snapshot.json" {
		t.Errorf("Seed.Path = %q, want override", cfg.Seed.Path)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("Server.Addr = %q, want override", cfg.Server.Addr)
	}
}

func TestValidateRejectsMissingRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero delta_t", func(c *Config) { c.Simulation.DeltaT = 0 }},
		{"zero max order size", func(c *Config) { c.Risk.MaxOrderSize = 0 }},
		{"zero max position", func(c *Config) { c.Risk.MaxPosition = 0 }},
		{"missing generator user id", func(c *Config) { c.Generator.UserID = "" }},
		{"missing seed path", func(c *Config) { c.Seed.Path = "" }},
		{"missing server addr", func(c *Config) { c.Server.Addr = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestConfig(t, validConfigYAML)
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
