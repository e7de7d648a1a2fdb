package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
)

func TestPercent(t *testing.T) {
	cases := map[float64]string{0.01: "1.00%", -0.25: "-25.00%", 0: "0.00%"}
	for in, want := range cases {
		if got := Percent(in); got != want {
			t.Errorf("Percent(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestCells(t *testing.T) {
	got := Cells(Row{
		Symbol:   "AAPL",
		Strategy: "sma-cross",
		Report:   domain.Report{TotalReturn: 0.1234, SharpeRatio: 1.5, MaxDrawdown: 0.05, WinRate: 0.5, TotalTrades: 4},
		Elapsed:  1500 * time.Microsecond,
	})
	if len(got) != len(Columns) {
		t.Fatalf("len(Cells) = %d, want %d", len(got), len(Columns))
	}
	if got[2] != "12.34%" || got[3] != "1.50" || got[8] != "4" || got[9] != "2ms" {
		t.Errorf("Cells = %v", got)
	}

	failed := Cells(Row{Symbol: "X", Strategy: "momentum", Err: errors.New("no bars")})
	if failed[2] != "error: no bars" {
		t.Errorf("error row = %v", failed)
	}
}

func TestTableAndSummary(t *testing.T) {
	out := Table([]Row{
		{Symbol: "AAPL", Strategy: "momentum", Report: domain.Report{TotalReturn: 0.02}},
		{Symbol: "MSFT", Strategy: "momentum", Err: errors.New("boom")},
	})
	for _, want := range []string{"SYMBOL", "AAPL", "MSFT", "2.00%", "error: boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}

	sum := Summary("AAPL sma-cross", domain.Report{TotalReturn: 0.01, TotalTrades: 1}, 900)
	for _, want := range []string{"Total return", "1.00%", "900.00"} {
		if !strings.Contains(sum, want) {
			t.Errorf("summary missing %q:\n%s", want, sum)
		}
	}
}
