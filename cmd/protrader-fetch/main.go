package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/config"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/history"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/store"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/util"
)

func main() {
	os.Exit(run())
}

func run() int {
	symbols := flag.String("symbols", "", "comma-separated symbols to download (required)")
	startStr := flag.String("start", "", "start date YYYY-MM-DD (default: five years before end)")
	endStr := flag.String("end", "", "end date YYYY-MM-DD (default: today)")
	workers := flag.Int("workers", 0, "concurrent downloads (default backtest.workers)")
	flag.Parse()

	if *symbols == "" {
		flag.Usage()
		return 2
	}

	cfg, err := config.LoadOrDefault(config.Path())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
		log.Fatal("alpaca credentials missing: set APCA_API_KEY_ID and APCA_API_SECRET_KEY")
	}

	logger, closer := util.NewLogger(cfg.Logging)
	defer closer.Close()
	util.SetDefault(logger)

	end := time.Now().UTC().Truncate(24 * time.Hour)
	if *endStr != "" {
		if end, err = time.Parse(time.DateOnly, *endStr); err != nil {
			slog.Error("invalid -end", "error", err)
			return 1
		}
	}
	start := end.AddDate(-5, 0, 0)
	if *startStr != "" {
		if start, err = time.Parse(time.DateOnly, *startStr); err != nil {
			slog.Error("invalid -start", "error", err)
			return 1
		}
	}
	if *workers <= 0 {
		*workers = cfg.Backtest.Workers
	}

	var list []string
	for _, s := range strings.Split(*symbols, ",") {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, strings.ToUpper(s))
		}
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	alpaca := history.NewAlpacaProvider(cfg.Alpaca, cfg.History, logger)
	fetcher := history.NewFetcher(alpaca, pstore, cfg.History.Market, *workers, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting fetch",
		"symbols", len(list),
		"start", start.Format(time.DateOnly),
		"end", end.Format(time.DateOnly),
		"dataDir", cfg.Storage.DataDir,
	)
	sum, err := fetcher.Run(ctx, list, start, end)
	if err != nil {
		slog.Error("fetch error", "error", err)
		return 1
	}
	slog.Info("fetch complete", "symbols", sum.Symbols, "bars", sum.Bars, "empty", sum.Empty, "failed", sum.Failed)
	if sum.Failed > 0 {
		return 1
	}
	return 0
}
