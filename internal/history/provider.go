// Package history supplies the daily bar series that backtests run over,
// from the local Parquet store, from Alpaca, or from both with write-through
// caching.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/config"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/store"
)

// Provider returns the bars for symbol within [start, end], sorted by
// timestamp with duplicate timestamps removed. An unknown symbol yields an
// empty series, not an error.
type Provider interface {
	Name() string
	Bars(ctx context.Context, symbol string, start, end time.Time) (domain.Series, error)
}

// normalize sorts bars by time and keeps the last bar seen for each instant.
func normalize(bars domain.Series) domain.Series {
	if len(bars) < 2 {
		return bars
	}
	out := slices.Clone(bars)
	slices.SortStableFunc(out, func(a, b domain.Bar) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	w := 0
	for i := range out {
		if w > 0 && out[i].Timestamp.Equal(out[w-1].Timestamp) {
			out[w-1] = out[i]
			continue
		}
		out[w] = out[i]
		w++
	}
	return out[:w]
}

// New builds the provider selected by cfg.History.Source. bars may be nil
// when the source is "alpaca".
func New(cfg *config.Config, bars store.BarStore, log *slog.Logger) (Provider, error) {
	market := cfg.History.Market
	switch strings.ToLower(cfg.History.Source) {
	case "store":
		if bars == nil {
			return nil, fmt.Errorf("history source %q needs a bar store", cfg.History.Source)
		}
		return NewStoreProvider(bars, market), nil
	case "alpaca":
		return NewAlpacaProvider(cfg.Alpaca, cfg.History, log), nil
	case "cached":
		if bars == nil {
			return nil, fmt.Errorf("history source %q needs a bar store", cfg.History.Source)
		}
		return NewCachingProvider(bars, market, NewAlpacaProvider(cfg.Alpaca, cfg.History, log), log), nil
	default:
		return nil, fmt.Errorf("unknown history source %q", cfg.History.Source)
	}
}
