package history

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/store"
)

// Fetcher downloads daily bars for a symbol list from a Provider into a
// BarStore, several symbols at a time.
type Fetcher struct {
	source  Provider
	bars    store.BarStore
	market  string
	workers int
	log     *slog.Logger
}

// FetchSummary counts the outcome of a Fetcher run.
type FetchSummary struct {
	Symbols int
	Bars    int64
	Empty   int64
	Failed  int64
}

// NewFetcher creates a Fetcher writing into bars under market.
func NewFetcher(source Provider, bars store.BarStore, market string, workers int, log *slog.Logger) *Fetcher {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		source:  source,
		bars:    bars,
		market:  market,
		workers: workers,
		log:     log.With("fetcher", source.Name()),
	}
}

// Name returns the fetcher identifier.
func (f *Fetcher) Name() string { return "fetch-" + f.source.Name() }

// Run fetches [start, end] for every symbol. A symbol that fails is logged
// and counted; Run itself only fails when ctx ends.
func (f *Fetcher) Run(ctx context.Context, symbols []string, start, end time.Time) (FetchSummary, error) {
	var (
		sum      = FetchSummary{Symbols: len(symbols)}
		bars     atomic.Int64
		empty    atomic.Int64
		failed   atomic.Int64
		runStart = time.Now()
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for _, sym := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			series, err := f.source.Bars(gctx, sym, start, end)
			if err == nil && len(series) > 0 {
				err = f.bars.WriteBars(gctx, f.market, series)
			}
			switch {
			case err != nil:
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				f.log.Warn("fetch failed", "symbol", sym, "error", err)
			case len(series) == 0:
				empty.Add(1)
			default:
				bars.Add(int64(len(series)))
				f.log.Debug("stored bars", "symbol", sym, "count", len(series))
			}
			return nil
		})
	}
	err := g.Wait()

	sum.Bars, sum.Empty, sum.Failed = bars.Load(), empty.Load(), failed.Load()
	f.log.Info("fetch complete",
		"symbols", sum.Symbols,
		"bars", sum.Bars,
		"empty", sum.Empty,
		"failed", sum.Failed,
		"elapsed", time.Since(runStart).Round(time.Millisecond),
	)
	if err != nil {
		return sum, fmt.Errorf("fetch interrupted: %w", err)
	}
	return sum, nil
}
