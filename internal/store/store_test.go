package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
)

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	bp := ps.barPath("aapl", "us", 2024)
	wantBarPath := filepath.Join("/data", "us", "daily", "AAPL", "2024.parquet")
	if bp != wantBarPath {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", bp, wantBarPath)
	}

	id := uuid.NewString()
	ep, err := ps.equityPath(id)
	if err != nil {
		t.Fatalf("equityPath: %v", err)
	}
	if want := filepath.Join("/data", "backtests", id, "equity.parquet"); ep != want {
		t.Errorf("equityPath mismatch:\n  got  %s\n  want %s", ep, want)
	}
	if _, err := ps.equityPath("../../etc"); err == nil {
		t.Error("equityPath accepted a non-UUID run id")
	}
}

func TestParquetStoreWriteReadBars(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	bars := []domain.Bar{
		{
			Symbol:     "AAPL",
			Timestamp:  time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			Open:       185.5,
			High:       187.0,
			Low:        185.0,
			Close:      186.0,
			Volume:     45000000,
			TradeCount: 450000,
			VWAP:       185.75,
		},
		{
			Symbol:     "AAPL",
			Timestamp:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Open:       185.0,
			High:       186.5,
			Low:        184.0,
			Close:      185.5,
			Volume:     50000000,
			TradeCount: 500000,
			VWAP:       185.25,
		},
	}

	if err := ps.WriteBars(ctx, "us", bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := ps.ReadBars(ctx, "AAPL", "us", start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2", len(got))
	}
	// Written out of order, read back sorted.
	if got[0].Close != 185.5 || got[1].Close != 186.0 {
		t.Errorf("closes = %v, %v, want 185.5, 186.0", got[0].Close, got[1].Close)
	}
	if !got[0].Timestamp.Equal(bars[1].Timestamp) {
		t.Errorf("first timestamp = %v, want %v", got[0].Timestamp, bars[1].Timestamp)
	}
	if got[0].VWAP != 185.25 || got[0].TradeCount != 500000 {
		t.Errorf("first bar = %+v, feed fields lost", got[0])
	}

	// Range filtering is inclusive on both ends.
	got, err = ps.ReadBars(ctx, "AAPL", "us", bars[0].Timestamp, bars[0].Timestamp)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 1 || got[0].Close != 186.0 {
		t.Errorf("single-day range = %+v, want the Jan 3 bar", got)
	}
}

func TestParquetStoreMergeBars(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	first := []domain.Bar{
		{
			Symbol:    "MSFT",
			Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Open:      400.0, High: 405.0, Low: 399.0, Close: 403.0,
			Volume: 30000000,
		},
	}
	if err := ps.WriteBars(ctx, "us", first); err != nil {
		t.Fatalf("WriteBars (first): %v", err)
	}

	// A new day plus a corrected close for the first one.
	second := []domain.Bar{
		{
			Symbol:    "MSFT",
			Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Open:      400.0, High: 405.0, Low: 399.0, Close: 404.0,
			Volume: 30000000,
		},
		{
			Symbol:    "MSFT",
			Timestamp: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
			Open:      403.0, High: 410.0, Low: 402.0, Close: 408.0,
			Volume: 35000000,
		},
	}
	if err := ps.WriteBars(ctx, "us", second); err != nil {
		t.Fatalf("WriteBars (second): %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := ps.ReadBars(ctx, "MSFT", "us", start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars after merge, want 2", len(got))
	}
	if got[0].Close != 404.0 {
		t.Errorf("merged close = %v, want the newer 404", got[0].Close)
	}
}

func TestParquetStoreReadAcrossYears(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars := []domain.Bar{
		{Symbol: "SPY", Timestamp: time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC), Open: 1, High: 1, Low: 1, Close: 1},
		{Symbol: "SPY", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 2, High: 2, Low: 2, Close: 2},
	}
	if err := ps.WriteBars(ctx, "us", bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	got, err := ps.ReadBars(ctx, "SPY", "us", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 || got[0].Close != 1 || got[1].Close != 2 {
		t.Errorf("ReadBars across years = %+v", got)
	}

	got, err = ps.ReadBars(ctx, "NOPE", "us", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil || len(got) != 0 {
		t.Errorf("ReadBars(unknown) = %v, %v, want empty and nil", got, err)
	}
}

func TestParquetStoreListSymbols(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	bars := []domain.Bar{
		{Symbol: "GOOGL", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 140.0, High: 141.0, Low: 139.0, Close: 140.5, Volume: 20000000},
		{Symbol: "AAPL", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 185.0, High: 186.0, Low: 184.0, Close: 185.5, Volume: 50000000},
	}
	if err := ps.WriteBars(ctx, "us", bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	symbols, err := ps.ListSymbols(ctx, "us")
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "GOOGL" {
		t.Errorf("ListSymbols = %v, want [AAPL GOOGL]", symbols)
	}

	if symbols, err := ps.ListSymbols(ctx, "crypto"); err != nil || symbols != nil {
		t.Errorf("ListSymbols(empty market) = %v, %v", symbols, err)
	}
}

func TestParquetStoreEquity(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()
	id := uuid.NewString()

	equity := []domain.EquityPoint{
		{Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Equity: 1000},
		{Timestamp: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Equity: 1010.5},
	}
	if err := ps.WriteEquity(ctx, id, equity); err != nil {
		t.Fatalf("WriteEquity: %v", err)
	}
	got, err := ps.ReadEquity(ctx, id)
	if err != nil {
		t.Fatalf("ReadEquity: %v", err)
	}
	if len(got) != 2 || got[1].Equity != 1010.5 || !got[1].Timestamp.Equal(equity[1].Timestamp) {
		t.Errorf("ReadEquity = %+v, want %+v", got, equity)
	}

	if _, err := ps.ReadEquity(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadEquity(unknown) error = %v, want ErrNotFound", err)
	}
}

func openTestDB(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore(%q) returned error: %v", dbPath, err)
	}
	t.Cleanup(func() {
		if cerr := store.Close(); cerr != nil {
			t.Errorf("Close() returned error: %v", cerr)
		}
	})
	return store
}

func TestSQLiteStoreOpen(t *testing.T) {
	store := openTestDB(t)
	if err := store.db.Ping(); err != nil {
		t.Fatalf("db.Ping() returned error: %v", err)
	}
}

func TestSQLiteStoreSaveGetRun(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()

	run := &Run{
		Symbol:      "AAPL",
		Strategy:    "sma-cross",
		Start:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		InitialCash: 1000,
		FinalCash:   1100,
		Report:      domain.Report{TotalReturn: 0.1, SharpeRatio: 1.2, MaxDrawdown: 0.05, VaR95: -0.02, CVaR95: -0.03, WinRate: 1, TotalTrades: 2},
		Trades: []domain.Trade{
			{Timestamp: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Action: domain.ActionBuy, Price: 100, Quantity: 10},
			{Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Action: domain.ActionSell, Price: 110, Quantity: 10},
		},
	}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if _, err := uuid.Parse(run.ID); err != nil {
		t.Fatalf("SaveRun assigned id %q, not a UUID: %v", run.ID, err)
	}
	if run.CreatedAt.IsZero() {
		t.Error("SaveRun did not set CreatedAt")
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Report != run.Report {
		t.Errorf("Report = %+v, want %+v", got.Report, run.Report)
	}
	if got.Symbol != "AAPL" || got.Strategy != "sma-cross" || got.FinalCash != 1100 {
		t.Errorf("GetRun = %+v", got)
	}
	if !got.Start.Equal(run.Start) || !got.End.Equal(run.End) {
		t.Errorf("range = %v..%v, want %v..%v", got.Start, got.End, run.Start, run.End)
	}
	if len(got.Trades) != 2 || got.Trades[1] != run.Trades[1] {
		t.Errorf("Trades = %+v, want %+v", got.Trades, run.Trades)
	}

	if _, err := store.GetRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun(missing) error = %v, want ErrNotFound", err)
	}
	if err := store.SaveRun(ctx, run); err == nil {
		t.Error("saving the same id twice returned nil error")
	}
}

func TestSQLiteStoreListRuns(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

	for i, sym := range []string{"AAPL", "MSFT", "AAPL", "AAPL"} {
		r := &Run{Symbol: sym, Strategy: "momentum", InitialCash: 1000, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := store.SaveRun(ctx, r); err != nil {
			t.Fatalf("SaveRun %d: %v", i, err)
		}
	}

	all, err := store.ListRuns(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("ListRuns returned %d runs, want 4", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Errorf("runs not newest first at %d", i)
		}
	}

	aapl, err := store.ListRuns(ctx, "AAPL", 2)
	if err != nil {
		t.Fatalf("ListRuns(AAPL): %v", err)
	}
	if len(aapl) != 2 {
		t.Fatalf("ListRuns(AAPL, 2) returned %d runs", len(aapl))
	}
	if !aapl[0].CreatedAt.Equal(base.Add(3 * time.Minute)) {
		t.Errorf("newest AAPL run created %v, want %v", aapl[0].CreatedAt, base.Add(3*time.Minute))
	}
	for _, r := range aapl {
		if r.Symbol != "AAPL" || r.Trades != nil {
			t.Errorf("listed run = %+v, want AAPL summary without trades", r)
		}
	}
}
