package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/api"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/backtest"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/config"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/history"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/store"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/strategy/builtins"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/util"
)

func main() {
	cfg, err := config.LoadOrDefault(config.Path())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, closer := util.NewLogger(cfg.Logging)
	defer closer.Close()
	util.SetDefault(logger)

	registry, err := builtins.NewDefaultRegistry(cfg.Strategies)
	if err != nil {
		log.Fatalf("failed to build strategies: %v", err)
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	runs, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open run store: %v", err)
	}
	defer runs.Close()

	provider, err := history.New(cfg, pstore, logger)
	if err != nil {
		log.Fatalf("failed to create history provider: %v", err)
	}

	runner := backtest.NewRunner(provider, backtest.NewEngine(logger), backtest.RunnerConfig{
		InitialCash: cfg.Backtest.InitialCash,
		MinBars:     cfg.Backtest.MinBars,
		Workers:     cfg.Backtest.Workers,
		RunTimeout:  cfg.Backtest.RunTimeout,
	}, logger)

	defaults := api.Defaults{
		InitialCash: cfg.Backtest.InitialCash,
		Quantity:    cfg.Backtest.Quantity,
	}
	if vc := cfg.Strategies.VolumeConfirm; vc.Enabled {
		defaults.Confirm = &backtest.VolumeFilter{Window: vc.Window, Multiple: vc.Multiple}
	}
	svc := api.NewService(registry, runner, runs, pstore, defaults, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting protrader-server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"grpcPort", cfg.Server.GRPCPort,
		"history", provider.Name(),
	)
	if err := api.NewServer(cfg.Server, svc, logger).ListenAndServe(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
