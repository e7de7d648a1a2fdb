package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/backtest"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/config"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/history"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/report"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/store"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/strategy"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/strategy/builtins"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/util"
)

func main() {
	os.Exit(run())
}

func run() int {
	symbols := flag.String("symbol", "", "comma-separated symbols (required)")
	strategies := flag.String("strategy", "all", "comma-separated strategy names, or all")
	startStr := flag.String("start", "", "start date YYYY-MM-DD (default: one year before end)")
	endStr := flag.String("end", "", "end date YYYY-MM-DD (default: today)")
	cash := flag.Float64("cash", 0, "initial cash (default from config)")
	qty := flag.Int64("qty", 0, "shares per order (default from config)")
	confirm := flag.Bool("confirm-volume", false, "only act on flags backed by a volume surge")
	tradesCSV := flag.String("trades-csv", "", "write the trade log of a single run to this CSV file")
	equityCSV := flag.String("equity-csv", "", "write the equity curve of a single run to this CSV file")
	save := flag.Bool("save", false, "persist runs to SQLite and equity curves to Parquet")
	rf := flag.Float64("rf", 0, "annual risk-free rate for the excess Sharpe ratio")
	stress := flag.Float64("stress", 0, "shock applied to every period return in a stress test, e.g. -0.05")
	flag.Parse()

	if *symbols == "" {
		flag.Usage()
		return 2
	}

	cfg, err := config.LoadOrDefault(config.Path())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
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
	start := end.AddDate(-1, 0, 0)
	if *startStr != "" {
		if start, err = time.Parse(time.DateOnly, *startStr); err != nil {
			slog.Error("invalid -start", "error", err)
			return 1
		}
	}
	if !start.Before(end) {
		slog.Error("-start must be before -end", "start", start.Format(time.DateOnly), "end", end.Format(time.DateOnly))
		return 1
	}
	if *qty <= 0 {
		*qty = cfg.Backtest.Quantity
	}

	registry, err := builtins.NewDefaultRegistry(cfg.Strategies)
	if err != nil {
		slog.Error("failed to build strategies", "error", err)
		return 1
	}
	strats, err := selectStrategies(registry, *strategies)
	if err != nil {
		slog.Error("invalid -strategy", "error", err)
		return 1
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	provider, err := history.New(cfg, pstore, logger)
	if err != nil {
		slog.Error("failed to create history provider", "error", err)
		return 1
	}

	runner := backtest.NewRunner(provider, backtest.NewEngine(logger), backtest.RunnerConfig{
		InitialCash: cfg.Backtest.InitialCash,
		MinBars:     cfg.Backtest.MinBars,
		Workers:     cfg.Backtest.Workers,
		RunTimeout:  cfg.Backtest.RunTimeout,
	}, logger)

	var filter *backtest.VolumeFilter
	if *confirm || cfg.Strategies.VolumeConfirm.Enabled {
		filter = &backtest.VolumeFilter{
			Window:   cfg.Strategies.VolumeConfirm.Window,
			Multiple: cfg.Strategies.VolumeConfirm.Multiple,
		}
	}

	var jobs []backtest.Job
	for _, sym := range splitList(*symbols) {
		for _, s := range strats {
			jobs = append(jobs, backtest.Job{
				Symbol:      strings.ToUpper(sym),
				Start:       start,
				End:         end,
				Strategy:    s,
				Policy:      builtins.PolicyFor(s, *qty),
				InitialCash: *cash,
				Confirm:     filter,
			})
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("running backtests",
		"jobs", len(jobs),
		"source", provider.Name(),
		"start", start.Format(time.DateOnly),
		"end", end.Format(time.DateOnly),
	)
	outcomes := runner.Sweep(ctx, jobs)

	rows := make([]report.Row, len(outcomes))
	failed := 0
	for i, o := range outcomes {
		rows[i] = report.Row{Symbol: o.Job.Symbol, Strategy: o.Job.Strategy.Name(), Elapsed: o.Elapsed, Err: o.Err}
		if o.Err != nil {
			failed++
			continue
		}
		rows[i].Report = o.Result.Report
	}

	if len(outcomes) == 1 && outcomes[0].Err == nil {
		o := outcomes[0]
		fmt.Println(report.Summary(o.Job.Symbol+" "+o.Job.Strategy.Name(), o.Result.Report, o.Result.FinalCash))
		printRiskExtras(o.Result, *rf, *stress)
		if err := exportCSV(o.Result, *tradesCSV, *equityCSV); err != nil {
			slog.Error("export failed", "error", err)
			return 1
		}
	} else {
		fmt.Println(report.Table(rows))
		if *tradesCSV != "" || *equityCSV != "" {
			slog.Warn("CSV export needs exactly one symbol and one strategy; skipped")
		}
	}

	if *save {
		if err := persist(ctx, cfg, pstore, outcomes, *cash); err != nil {
			slog.Error("saving runs", "error", err)
			return 1
		}
	}

	if failed > 0 {
		slog.Warn("some backtests failed", "failed", failed, "total", len(outcomes))
		return 1
	}
	return 0
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func selectStrategies(reg *strategy.Registry, names string) ([]strategy.Strategy, error) {
	if names == "" || names == "all" {
		names = strings.Join(reg.List(), ",")
	}
	var out []strategy.Strategy
	for _, name := range splitList(names) {
		s, ok := reg.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown strategy %q (have %s)", name, strings.Join(reg.List(), ", "))
		}
		out = append(out, s)
	}
	return out, nil
}

func printRiskExtras(res *backtest.Result, rf, shock float64) {
	returns := backtest.PeriodReturns(res.Equity)
	if rf != 0 {
		fmt.Printf("Excess Sharpe (rf=%g): %.4f\n", rf, backtest.ExcessSharpe(returns, rf))
	}
	if shock != 0 {
		shocked := backtest.StressTest(returns, shock)
		v, cv := backtest.TailRisk(shocked, 0.05)
		fmt.Printf("Stress %+g: Sharpe %.4f, VaR 95%% %s, CVaR 95%% %s\n",
			shock, backtest.Sharpe(shocked), report.Percent(v), report.Percent(cv))
	}
}

func exportCSV(res *backtest.Result, tradesPath, equityPath string) error {
	if tradesPath != "" {
		f, err := os.Create(tradesPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := backtest.WriteTradesCSV(f, res.Trades); err != nil {
			return err
		}
		slog.Info("wrote trades", "path", tradesPath, "trades", len(res.Trades))
	}
	if equityPath != "" {
		f, err := os.Create(equityPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := backtest.WriteEquityCSV(f, res.Equity); err != nil {
			return err
		}
		slog.Info("wrote equity curve", "path", equityPath, "points", len(res.Equity))
	}
	return nil
}

func persist(ctx context.Context, cfg *config.Config, equity store.EquityStore, outcomes []backtest.Outcome, cashOverride float64) error {
	runs, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer runs.Close()

	initial := cfg.Backtest.InitialCash
	if cashOverride > 0 {
		initial = cashOverride
	}
	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		run := &store.Run{
			ID:          uuid.NewString(),
			Symbol:      o.Job.Symbol,
			Strategy:    o.Job.Strategy.Name(),
			Start:       o.Job.Start,
			End:         o.Job.End,
			InitialCash: initial,
			FinalCash:   o.Result.FinalCash,
			Report:      o.Result.Report,
			Trades:      o.Result.Trades,
		}
		if err := equity.WriteEquity(ctx, run.ID, o.Result.Equity); err != nil {
			return err
		}
		if err := runs.SaveRun(ctx, run); err != nil {
			return err
		}
		slog.Info("saved run", "id", run.ID, "symbol", run.Symbol, "strategy", run.Strategy)
	}
	return nil
}
