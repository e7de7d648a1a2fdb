package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/api"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/report"
	"github.com/Protrader1988/protrader-terminal-fullstack/pkg/protrader"
)

const version = "0.1.0"

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: protrader-cli <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  version     Print the CLI version\n")
	fmt.Fprintf(os.Stderr, "  strategies  List the strategies the server can run\n")
	fmt.Fprintf(os.Stderr, "  run         Run a backtest on the server\n")
	fmt.Fprintf(os.Stderr, "  get         Show a stored run\n")
	fmt.Fprintf(os.Stderr, "  list        List recent runs\n")
	fmt.Fprintf(os.Stderr, "\nThe server address comes from PROTRADER_SERVER (default http://127.0.0.1:8080).\n")
}

func main() {
	flag.Usage = usage
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	server := "http://127.0.0.1:8080"
	if s := os.Getenv("PROTRADER_SERVER"); s != "" {
		server = s
	}
	client := protrader.NewClient(server)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("protrader-cli %s\n", version)

	case "strategies":
		var names []string
		if names, err = client.ListStrategies(ctx); err == nil {
			for _, n := range names {
				fmt.Println(n)
			}
		}

	case "run":
		err = runCmd(ctx, client, os.Args[2:])

	case "get":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: protrader-cli get <run-id>")
			os.Exit(2)
		}
		var run *protrader.Run
		if run, err = client.GetRun(ctx, os.Args[2]); err == nil {
			printRun(run)
		}

	case "list":
		err = listCmd(ctx, client, os.Args[2:])

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runCmd(ctx context.Context, client *protrader.Client, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	symbol := fs.String("symbol", "", "symbol to backtest (required)")
	strat := fs.String("strategy", "", "strategy name (required)")
	start := fs.String("start", "", "start date YYYY-MM-DD")
	end := fs.String("end", "", "end date YYYY-MM-DD")
	cash := fs.Float64("cash", 0, "initial cash")
	qty := fs.Int64("qty", 0, "shares per order")
	grpcAddr := fs.String("grpc", "", "use the gRPC endpoint at host:port instead of HTTP")
	fs.Parse(args)

	if *symbol == "" || *strat == "" {
		fs.Usage()
		os.Exit(2)
	}

	if *grpcAddr != "" {
		return runGRPC(ctx, *grpcAddr, api.BacktestRequest{
			Symbol: *symbol, Strategy: *strat, Start: *start, End: *end,
			InitialCash: *cash, Quantity: *qty,
		})
	}

	req := protrader.BacktestRequest{Symbol: *symbol, Strategy: *strat, InitialCash: *cash, Quantity: *qty}
	var err error
	if *start != "" {
		if req.Start, err = time.Parse(time.DateOnly, *start); err != nil {
			return fmt.Errorf("invalid -start: %w", err)
		}
	}
	if *end != "" {
		if req.End, err = time.Parse(time.DateOnly, *end); err != nil {
			return fmt.Errorf("invalid -end: %w", err)
		}
	}
	run, err := client.RunBacktest(ctx, req)
	if err != nil {
		return err
	}
	printRun(run)
	return nil
}

func runGRPC(ctx context.Context, addr string, req api.BacktestRequest) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer conn.Close()

	run, err := api.NewGRPCClient(conn).RunBacktest(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("run %s\n", run.ID)
	fmt.Println(report.Summary(run.Symbol+" "+run.Strategy, run.Report, run.FinalCash))
	return nil
}

func listCmd(ctx context.Context, client *protrader.Client, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	symbol := fs.String("symbol", "", "only runs for this symbol")
	limit := fs.Int("limit", 20, "maximum runs to show")
	fs.Parse(args)

	runs, err := client.ListRuns(ctx, *symbol, *limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}
	rows := make([]report.Row, len(runs))
	for i, r := range runs {
		rows[i] = report.Row{Symbol: r.Symbol, Strategy: r.Strategy, Report: toDomain(r.Report)}
	}
	fmt.Println(report.Table(rows))
	for _, r := range runs {
		fmt.Printf("%s  %s  %s %s\n", r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Symbol, r.Strategy)
	}
	return nil
}

func printRun(run *protrader.Run) {
	fmt.Printf("run %s  %s..%s\n", run.ID, run.Start.Format(time.DateOnly), run.End.Format(time.DateOnly))
	fmt.Println(report.Summary(run.Symbol+" "+run.Strategy, toDomain(run.Report), run.FinalCash))
	if len(run.Trades) == 0 {
		return
	}
	var b strings.Builder
	for _, t := range run.Trades {
		fmt.Fprintf(&b, "%s  %-4s %6d @ %.2f\n", t.Timestamp.Format(time.DateOnly), t.Action, t.Quantity, t.Price)
	}
	fmt.Print(b.String())
}

func toDomain(r protrader.Report) domain.Report {
	return domain.Report{
		TotalReturn: r.TotalReturn,
		SharpeRatio: r.SharpeRatio,
		MaxDrawdown: r.MaxDrawdown,
		VaR95:       r.VaR95,
		CVaR95:      r.CVaR95,
		WinRate:     r.WinRate,
		TotalTrades: r.TotalTrades,
	}
}
