package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "protrader.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATA_DIR", "SQLITE_PATH", "ALPACA_API_KEY", "ALPACA_API_SECRET",
		"ALPACA_DATA_URL", "LOG_LEVEL", "APCA_API_KEY_ID", "APCA_API_SECRET_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFull(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `
storage:
  data_dir: "/tmp/protrader/data"
  sqlite_path: "/tmp/protrader/protrader.db"
server:
  host: "0.0.0.0"
  port: 8080
  grpc_port: 9090
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  data_url: "https://data.alpaca.markets"
  feed: "sip"
logging:
  level: "debug"
  format: "json"
  file: "/tmp/protrader/protrader.log"
  max_size_mb: 10
history:
  source: "store"
  market: "us"
backtest:
  initial_cash: 25000
  quantity: 5
  min_bars: 60
  workers: 8
  run_timeout: 45s
strategies:
  sma_cross:
    fast: 10
    slow: 30
  momentum:
    period: 7
    oversold: 25
    overbought: 75
  mean_reversion:
    window: 10
    std_dev: 1.5
  wick:
    threshold: 0.8
  volume_confirm:
    enabled: true
    window: 10
    multiple: 2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage --
	if cfg.Storage.DataDir != "/tmp/protrader/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/protrader/data")
	}
	if cfg.Storage.SQLitePath != "/tmp/protrader/protrader.db" {
		t.Errorf("Storage.SQLitePath = %q, want %q", cfg.Storage.SQLitePath, "/tmp/protrader/protrader.db")
	}

	// -- Server --
	if cfg.Server.Port != 8080 || cfg.Server.GRPCPort != 9090 {
		t.Errorf("Server ports = %d/%d, want 8080/9090", cfg.Server.Port, cfg.Server.GRPCPort)
	}

	// -- Alpaca --
	if cfg.Alpaca.APIKey != "test-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q", cfg.Alpaca.APIKey, "test-key")
	}
	if cfg.Alpaca.Feed != "sip" {
		t.Errorf("Alpaca.Feed = %q, want %q", cfg.Alpaca.Feed, "sip")
	}

	// -- Logging --
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}
	if cfg.Logging.MaxSizeMB != 10 {
		t.Errorf("Logging.MaxSizeMB = %d, want 10", cfg.Logging.MaxSizeMB)
	}
	// Unset keys keep their defaults.
	if cfg.Logging.MaxBackups != 5 {
		t.Errorf("Logging.MaxBackups = %d, want default 5", cfg.Logging.MaxBackups)
	}

	// -- Backtest --
	if cfg.Backtest.InitialCash != 25000 {
		t.Errorf("Backtest.InitialCash = %v, want 25000", cfg.Backtest.InitialCash)
	}
	if cfg.Backtest.RunTimeout != 45*time.Second {
		t.Errorf("Backtest.RunTimeout = %v, want 45s", cfg.Backtest.RunTimeout)
	}
	if cfg.Backtest.Workers != 8 {
		t.Errorf("Backtest.Workers = %d, want 8", cfg.Backtest.Workers)
	}

	// -- Strategies --
	if cfg.Strategies.SMACross.Fast != 10 || cfg.Strategies.SMACross.Slow != 30 {
		t.Errorf("SMACross = %+v, want 10/30", cfg.Strategies.SMACross)
	}
	if cfg.Strategies.Momentum.Period != 7 {
		t.Errorf("Momentum.Period = %d, want 7", cfg.Strategies.Momentum.Period)
	}
	if cfg.Strategies.MeanReversion.StdDev != 1.5 {
		t.Errorf("MeanReversion.StdDev = %v, want 1.5", cfg.Strategies.MeanReversion.StdDev)
	}
	if !cfg.Strategies.VolumeConfirm.Enabled {
		t.Error("VolumeConfirm.Enabled = false, want true")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  data_dir: "/original/data"
`)

	t.Setenv("ALPACA_API_KEY", "env-key")
	t.Setenv("DATA_DIR", "/env/data")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (env override)", cfg.Alpaca.APIKey, "env-key")
	}
	// api_secret should remain from YAML since no env override was set.
	if cfg.Alpaca.APISecret != "yaml-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q (from YAML)", cfg.Alpaca.APISecret, "yaml-secret")
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}

	t.Setenv("APCA_API_KEY_ID", "canonical-key")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Alpaca.APIKey != "canonical-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (APCA_API_KEY_ID wins)", cfg.Alpaca.APIKey, "canonical-key")
	}
}

func TestLoadRejectsBadWindows(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `
strategies:
  sma_cross:
    fast: 50
    slow: 20
  mean_reversion:
    window: 0
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() accepted fast >= slow and a zero window")
	}
	msg := err.Error()
	for _, key := range []string{"strategies.sma_cross.fast", "strategies.mean_reversion.window"} {
		if !strings.Contains(msg, key) {
			t.Errorf("error %q does not mention %s", msg, key)
		}
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() returned error: %v", err)
	}
	if cfg.Backtest.InitialCash != 100000 {
		t.Errorf("Backtest.InitialCash = %v, want 100000", cfg.Backtest.InitialCash)
	}
	if cfg.Strategies.SMACross.Slow != 50 {
		t.Errorf("SMACross.Slow = %d, want 50", cfg.Strategies.SMACross.Slow)
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v, want nil", err)
	}
}
