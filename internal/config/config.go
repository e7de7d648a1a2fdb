package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for protrader.
type Config struct {
	Storage    Storage    `yaml:"storage"`
	Server     Server     `yaml:"server"`
	Alpaca     Alpaca     `yaml:"alpaca"`
	Logging    Logging    `yaml:"logging"`
	History    History    `yaml:"history"`
	Backtest   Backtest   `yaml:"backtest"`
	Strategies Strategies `yaml:"strategies"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
}

// Logging configures the application logger. When File is set, output is
// duplicated into a size-rotated log file.
type Logging struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// History selects where historical bars come from.
type History struct {
	// Source is "store", "alpaca", or "cached" (store first, Alpaca on miss).
	Source          string `yaml:"source"`
	Market          string `yaml:"market"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	MaxRetries      int    `yaml:"max_retries"`
}

// Backtest holds engine and runner parameters.
type Backtest struct {
	InitialCash float64       `yaml:"initial_cash"`
	Quantity    int64         `yaml:"quantity"`
	MinBars     int           `yaml:"min_bars"`
	Workers     int           `yaml:"workers"`
	RunTimeout  time.Duration `yaml:"run_timeout"`
}

// Strategies holds per-strategy numeric parameters.
type Strategies struct {
	SMACross      SMACross      `yaml:"sma_cross"`
	Momentum      Momentum      `yaml:"momentum"`
	MeanReversion MeanReversion `yaml:"mean_reversion"`
	Wick          Wick          `yaml:"wick"`
	VolumeConfirm VolumeConfirm `yaml:"volume_confirm"`
}

type SMACross struct {
	Fast int `yaml:"fast"`
	Slow int `yaml:"slow"`
}

type Momentum struct {
	Period     int     `yaml:"period"`
	Oversold   float64 `yaml:"oversold"`
	Overbought float64 `yaml:"overbought"`
}

type MeanReversion struct {
	Window int     `yaml:"window"`
	StdDev float64 `yaml:"std_dev"`
}

type Wick struct {
	Threshold float64 `yaml:"threshold"`
}

// VolumeConfirm filters flags to bars with a volume surge.
type VolumeConfirm struct {
	Enabled  bool    `yaml:"enabled"`
	Window   int     `yaml:"window"`
	Multiple float64 `yaml:"multiple"`
}

// ---------------------------------------------------------------------------
// Defaults and validation
// ---------------------------------------------------------------------------

// Default returns a Config populated with the stock parameter set.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/protrader.db",
		},
		Server: Server{
			Host:     "127.0.0.1",
			Port:     8080,
			GRPCPort: 9090,
		},
		Alpaca: Alpaca{
			Feed: "iex",
		},
		Logging: Logging{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
		History: History{
			Source:          "cached",
			Market:          "us",
			RateLimitPerMin: 200,
			MaxRetries:      3,
		},
		Backtest: Backtest{
			InitialCash: 100000,
			Quantity:    10,
			MinBars:     50,
			Workers:     4,
			RunTimeout:  30 * time.Second,
		},
		Strategies: Strategies{
			SMACross:      SMACross{Fast: 20, Slow: 50},
			Momentum:      Momentum{Period: 14, Oversold: 30, Overbought: 70},
			MeanReversion: MeanReversion{Window: 20, StdDev: 2},
			Wick:          Wick{Threshold: 0.6},
			VolumeConfirm: VolumeConfirm{Window: 20, Multiple: 1.5},
		},
	}
}

// Validate checks the numeric parameters that must be positive. All problems
// are reported together.
func (c *Config) Validate() error {
	var errs []error
	positive := func(key string, v float64) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %v", key, v))
		}
	}

	positive("backtest.initial_cash", c.Backtest.InitialCash)
	positive("backtest.quantity", float64(c.Backtest.Quantity))
	positive("backtest.workers", float64(c.Backtest.Workers))
	if c.Backtest.MinBars < 0 {
		errs = append(errs, fmt.Errorf("backtest.min_bars must be >= 0, got %d", c.Backtest.MinBars))
	}

	s := c.Strategies
	positive("strategies.sma_cross.fast", float64(s.SMACross.Fast))
	positive("strategies.sma_cross.slow", float64(s.SMACross.Slow))
	if s.SMACross.Fast >= s.SMACross.Slow {
		errs = append(errs, fmt.Errorf("strategies.sma_cross.fast (%d) must be < slow (%d)", s.SMACross.Fast, s.SMACross.Slow))
	}
	positive("strategies.momentum.period", float64(s.Momentum.Period))
	if s.Momentum.Oversold >= s.Momentum.Overbought {
		errs = append(errs, fmt.Errorf("strategies.momentum.oversold (%v) must be < overbought (%v)", s.Momentum.Oversold, s.Momentum.Overbought))
	}
	positive("strategies.mean_reversion.window", float64(s.MeanReversion.Window))
	positive("strategies.mean_reversion.std_dev", s.MeanReversion.StdDev)
	positive("strategies.wick.threshold", s.Wick.Threshold)
	if s.VolumeConfirm.Enabled {
		positive("strategies.volume_confirm.window", float64(s.VolumeConfirm.Window))
		positive("strategies.volume_confirm.multiple", s.VolumeConfirm.Multiple)
	}

	switch c.History.Source {
	case "store", "alpaca", "cached":
	default:
		errs = append(errs, fmt.Errorf("history.source must be store, alpaca or cached, got %q", c.History.Source))
	}

	return errors.Join(errs...)
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path on top of
// Default(), applies environment variable overrides, and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to Default() plus
// environment overrides when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		applyEnvOverrides(cfg)
		return cfg, cfg.Validate()
	}
	return cfg, err
}

// Path returns the config file path, honouring PROTRADER_CONFIG.
func Path() string {
	if p := os.Getenv("PROTRADER_CONFIG"); p != "" {
		return p
	}
	return "config/protrader.yaml"
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority, canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
