package backtest

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/util"
)

func day(i int) time.Time {
	return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func seriesOf(closes ...float64) domain.Series {
	s := make(domain.Series, len(closes))
	for i, c := range closes {
		s[i] = domain.Bar{Symbol: "TEST", Timestamp: day(i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return s
}

func newTestEngine() *Engine {
	return NewEngine(util.Discard())
}

func TestEngineTwoBarScenario(t *testing.T) {
	series := seriesOf(100, 110)
	signals := domain.NewSignalMap([]domain.Signal{
		{Timestamp: day(0), Action: domain.ActionBuy, Quantity: 1},
	})

	res, err := newTestEngine().Run(context.Background(), series, 1000, signals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.FinalCash != 900 {
		t.Errorf("FinalCash = %v, want 900", res.FinalCash)
	}
	if res.FinalShares != 1 {
		t.Errorf("FinalShares = %d, want 1", res.FinalShares)
	}
	if res.Equity[0].Equity != 1000 {
		t.Errorf("equity at bar 1 = %v, want 1000", res.Equity[0].Equity)
	}
	if res.Equity[1].Equity != 1010 {
		t.Errorf("equity at bar 2 = %v, want 1010", res.Equity[1].Equity)
	}
	if res.Report.TotalReturn != 0.01 {
		t.Errorf("TotalReturn = %v, want 0.01", res.Report.TotalReturn)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("len(Trades) = %d, want 1", len(res.Trades))
	}
	want := domain.Trade{Timestamp: day(0), Action: domain.ActionBuy, Price: 100, Quantity: 1}
	if res.Trades[0] != want {
		t.Errorf("Trades[0] = %+v, want %+v", res.Trades[0], want)
	}
}

func TestEngineSkipsUnaffordableBuy(t *testing.T) {
	series := seriesOf(100, 101, 102)
	signals := domain.NewSignalMap([]domain.Signal{
		{Timestamp: day(0), Action: domain.ActionBuy, Quantity: 11},
	})

	res, err := newTestEngine().Run(context.Background(), series, 1000, signals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 0 {
		t.Errorf("len(Trades) = %d, want 0", len(res.Trades))
	}
	if res.FinalCash != 1000 {
		t.Errorf("FinalCash = %v, want 1000 (unchanged)", res.FinalCash)
	}
	for i, p := range res.Equity {
		if p.Equity != 1000 {
			t.Errorf("equity[%d] = %v, want 1000", i, p.Equity)
		}
	}
}

func TestEngineBuyExactlyAllCash(t *testing.T) {
	series := seriesOf(100, 90)
	signals := domain.NewSignalMap([]domain.Signal{
		{Timestamp: day(0), Action: domain.ActionBuy, Quantity: 10},
	})

	res, err := newTestEngine().Run(context.Background(), series, 1000, signals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 1 || res.FinalCash != 0 {
		t.Errorf("trades=%d cash=%v, want 1 trade and 0 cash", len(res.Trades), res.FinalCash)
	}
	if res.Equity[1].Equity != 900 {
		t.Errorf("equity at bar 2 = %v, want 900", res.Equity[1].Equity)
	}
}

func TestEngineSkipsOversizedSell(t *testing.T) {
	series := seriesOf(100, 110, 120)
	signals := domain.NewSignalMap([]domain.Signal{
		{Timestamp: day(0), Action: domain.ActionBuy, Quantity: 2},
		{Timestamp: day(1), Action: domain.ActionSell, Quantity: 3},
		{Timestamp: day(2), Action: domain.ActionSell, Quantity: 2},
	})

	res, err := newTestEngine().Run(context.Background(), series, 1000, signals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 2 {
		t.Fatalf("len(Trades) = %d, want 2: %+v", len(res.Trades), res.Trades)
	}
	if res.Trades[1].Action != domain.ActionSell || res.Trades[1].Price != 120 {
		t.Errorf("Trades[1] = %+v, want SELL at 120", res.Trades[1])
	}
	if res.FinalShares != 0 || res.FinalCash != 1040 {
		t.Errorf("final position = %v cash / %d shares, want 1040 / 0", res.FinalCash, res.FinalShares)
	}
}

func TestEngineIgnoresMalformedSignals(t *testing.T) {
	series := seriesOf(10, 11, 12)
	signals := domain.SignalMap{}
	signals.Put(domain.Signal{Timestamp: day(0), Action: domain.ActionBuy, Quantity: 0})
	signals.Put(domain.Signal{Timestamp: day(1), Action: domain.Action("HOLD"), Quantity: 1})
	signals.Put(domain.Signal{Timestamp: day(9), Action: domain.ActionBuy, Quantity: 1}) // no such bar

	res, err := newTestEngine().Run(context.Background(), series, 100, signals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 0 {
		t.Errorf("len(Trades) = %d, want 0", len(res.Trades))
	}
}

func TestEngineEquityCurveMatchesSeries(t *testing.T) {
	series := seriesOf(5, 6, 7, 6, 5, 4, 5, 6)
	res, err := newTestEngine().Run(context.Background(), series, 100, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Equity) != len(series) {
		t.Fatalf("len(Equity) = %d, want %d", len(res.Equity), len(series))
	}
	for i := range series {
		if !res.Equity[i].Timestamp.Equal(series[i].Timestamp) {
			t.Errorf("Equity[%d].Timestamp = %v, want %v", i, res.Equity[i].Timestamp, series[i].Timestamp)
		}
	}
}

func TestEngineEmptySeries(t *testing.T) {
	_, err := newTestEngine().Run(context.Background(), nil, 1000, nil)
	if !errors.Is(err, ErrNoBarsProcessed) {
		t.Errorf("Run(empty) error = %v, want ErrNoBarsProcessed", err)
	}
}

func TestEngineAbortedRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newTestEngine().Run(ctx, seriesOf(1, 2, 3), 1000, nil)
	if res != nil {
		t.Error("aborted run returned a result")
	}
	if !errors.Is(err, ErrRunAborted) {
		t.Errorf("error = %v, want ErrRunAborted", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want it to wrap context.Canceled", err)
	}
}

// randomRun builds a long random walk and a dense random signal map.
func randomRun(seed int64) (domain.Series, domain.SignalMap) {
	rng := rand.New(rand.NewSource(seed))
	price := 50.0
	closes := make([]float64, 400)
	for i := range closes {
		price *= 1 + (rng.Float64()-0.5)*0.06
		closes[i] = float64(int(price*100)) / 100
	}
	series := seriesOf(closes...)

	signals := domain.SignalMap{}
	for i := range series {
		if rng.Intn(3) != 0 {
			continue
		}
		a := domain.ActionBuy
		if rng.Intn(2) == 0 {
			a = domain.ActionSell
		}
		signals.Put(domain.Signal{Timestamp: series[i].Timestamp, Action: a, Quantity: int64(1 + rng.Intn(40))})
	}
	return series, signals
}

func TestEnginePositionInvariants(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		series, signals := randomRun(seed)
		res, err := newTestEngine().Run(context.Background(), series, 2000, signals)
		if err != nil {
			t.Fatalf("seed %d: Run: %v", seed, err)
		}

		// Replay the trade log; cash and shares must never go negative.
		cash, shares := 2000.0, int64(0)
		for i, tr := range res.Trades {
			switch tr.Action {
			case domain.ActionBuy:
				cash -= tr.Price * float64(tr.Quantity)
				shares += tr.Quantity
			case domain.ActionSell:
				cash += tr.Price * float64(tr.Quantity)
				shares -= tr.Quantity
			}
			if cash < -1e-6 || shares < 0 {
				t.Fatalf("seed %d: after trade %d cash=%v shares=%d", seed, i, cash, shares)
			}
		}
		if shares != res.FinalShares {
			t.Errorf("seed %d: replayed shares %d != FinalShares %d", seed, shares, res.FinalShares)
		}
		if dd := res.Report.MaxDrawdown; dd < 0 || dd > 1 {
			t.Errorf("seed %d: MaxDrawdown = %v, want within [0,1]", seed, dd)
		}
	}
}

func TestEngineDeterministic(t *testing.T) {
	series, signals := randomRun(42)
	e := newTestEngine()

	first, err := e.Run(context.Background(), series, 5000, signals)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := e.Run(context.Background(), series, 5000, signals)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("two runs with identical inputs produced different results")
	}
}
