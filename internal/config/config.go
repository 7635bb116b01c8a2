// Package config defines all configuration for the simulation core.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive/override fields available via SIM_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Simulation SimulationConfig `mapstructure:"simulation"`
	Risk       RiskConfig       `mapstructure:"risk"`
	News       NewsConfig       `mapstructure:"news"`
	Bots       BotConfig        `mapstructure:"bots"`
	Generator  GeneratorConfig  `mapstructure:"generator"`
	Seed       SeedConfig       `mapstructure:"seed"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// SimulationConfig tunes the GBM price process (C6) and the tick cadence
// shared by the orchestrator's loops.
//
//   - DeltaT: per-tick time step, in years (1/252 ≈ one trading day).
//   - PriceTickHz: price simulator tick frequency.
//   - NewsTickHz: news engine tick frequency.
//   - BotRefreshHz: market-maker refresh frequency.
//   - GeneratorIntervalSec: order generator period.
//   - BroadcastHz: snapshot broadcaster frequency.
//   - RandSeed: seed for the process-wide RNG source; 0 derives a seed from
//     wall-clock time at startup.
type SimulationConfig struct {
	DeltaT               float64 `mapstructure:"delta_t"`
	PriceTickHz          float64 `mapstructure:"price_tick_hz"`
	NewsTickHz           float64 `mapstructure:"news_tick_hz"`
	BotRefreshHz         float64 `mapstructure:"bot_refresh_hz"`
	GeneratorIntervalSec float64 `mapstructure:"generator_interval_sec"`
	BroadcastHz          float64 `mapstructure:"broadcast_hz"`
	RandSeed             int64   `mapstructure:"rand_seed"`
}

// RiskConfig sets the ordered pre-trade checks enforced by the risk gate (C4).
type RiskConfig struct {
	MaxOrderSize           int           `mapstructure:"max_order_size"`
	MaxVolumePerMinute     int           `mapstructure:"max_volume_per_minute"`
	MaxPosition            int           `mapstructure:"max_position"`
	ReversalWindow         time.Duration `mapstructure:"reversal_window"`
	ReversalQty            int           `mapstructure:"reversal_qty"`
	RateLimitWindow        time.Duration `mapstructure:"rate_limit_window"`
	StartingCash           float64       `mapstructure:"starting_cash"`
}

// NewsConfig tunes the news engine's (C5) bucket-activation cadence.
type NewsConfig struct {
	BucketSizeMs int64 `mapstructure:"bucket_size_ms"`
}

// BotConfig tunes the market-making bots (C7).
//
//   - BaseSpread: floor spread as a fraction of mid (0.005 = 0.5%).
//   - StressCoef: multiplies |drift| into the spread.
//   - InventoryCoef: multiplies |inventory| into the spread.
//   - NoiseSigma: std dev of the small Gaussian spread noise term.
//   - MeanReversion: fraction of (s0 - mid) pulled back each refresh.
//   - ShockSigmaFrac: std dev of the random-walk shock, as a fraction of mid.
//   - InventoryPressureCoef: inventory-driven pressure on the mid random walk.
//   - MaxInventory: inventory magnitude at which one side of the ladder is suppressed.
//   - Levels: number of ladder levels per side.
type BotConfig struct {
	BaseSpread            float64 `mapstructure:"base_spread"`
	StressCoef            float64 `mapstructure:"stress_coef"`
	InventoryCoef         float64 `mapstructure:"inventory_coef"`
	NoiseSigma            float64 `mapstructure:"noise_sigma"`
	MeanReversion         float64 `mapstructure:"mean_reversion"`
	ShockSigmaFrac        float64 `mapstructure:"shock_sigma_frac"`
	InventoryPressureCoef float64 `mapstructure:"inventory_pressure_coef"`
	MaxInventory          int     `mapstructure:"max_inventory"`
	Levels                int     `mapstructure:"levels"`
}

// GeneratorConfig tunes the periodic reference-order injector (C8).
type GeneratorConfig struct {
	UserID string `mapstructure:"user_id"`
}

// SeedConfig points at the startup snapshot of instruments/factors/news.
type SeedConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig controls the HTTP + WebSocket external interface.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MetricsEnabled bool     `mapstructure:"metrics_enabled"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with env var overrides.
// Override fields use env vars: SIM_SEED_PATH, SIM_SERVER_ADDR, SIM_RAND_SEED.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("SIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if p := os.Getenv("SIM_SEED_PATH"); p != "" {
		cfg.Seed.Path = p
	}
	if addr := os.Getenv("SIM_SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if s := os.Getenv("SIM_RAND_SEED"); s != "" {
		seed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse SIM_RAND_SEED: %w", err)
		}
		cfg.Simulation.RandSeed = seed
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Simulation.DeltaT <= 0 {
		return fmt.Errorf("simulation.delta_t must be > 0")
	}
	if c.Simulation.PriceTickHz <= 0 {
		return fmt.Errorf("simulation.price_tick_hz must be > 0")
	}
	if c.Simulation.NewsTickHz <= 0 {
		return fmt.Errorf("simulation.news_tick_hz must be > 0")
	}
	if c.Simulation.BotRefreshHz <= 0 {
		return fmt.Errorf("simulation.bot_refresh_hz must be > 0")
	}
	if c.Simulation.GeneratorIntervalSec <= 0 {
		return fmt.Errorf("simulation.generator_interval_sec must be > 0")
	}
	if c.Simulation.BroadcastHz <= 0 {
		return fmt.Errorf("simulation.broadcast_hz must be > 0")
	}
	if c.Risk.MaxOrderSize <= 0 {
		return fmt.Errorf("risk.max_order_size must be > 0")
	}
	if c.Risk.MaxVolumePerMinute <= 0 {
		return fmt.Errorf("risk.max_volume_per_minute must be > 0")
	}
	if c.Risk.MaxPosition <= 0 {
		return fmt.Errorf("risk.max_position must be > 0")
	}
	if c.Risk.ReversalWindow <= 0 {
		return fmt.Errorf("risk.reversal_window must be > 0")
	}
	if c.Risk.RateLimitWindow <= 0 {
		return fmt.Errorf("risk.rate_limit_window must be > 0")
	}
	if c.Risk.StartingCash <= 0 {
		return fmt.Errorf("risk.starting_cash must be > 0")
	}
	if c.News.BucketSizeMs <= 0 {
		return fmt.Errorf("news.bucket_size_ms must be > 0")
	}
	if c.Bots.MaxInventory <= 0 {
		return fmt.Errorf("bots.max_inventory must be > 0")
	}
	if c.Bots.Levels <= 0 {
		return fmt.Errorf("bots.levels must be > 0")
	}
	if c.Generator.UserID == "" {
		return fmt.Errorf("generator.user_id is required")
	}
	if c.Seed.Path == "" {
		return fmt.Errorf("seed.path is required (set SIM_SEED_PATH)")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}
