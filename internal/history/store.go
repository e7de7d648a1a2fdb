package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/store"
)

var _ Provider = (*StoreProvider)(nil)

// StoreProvider reads bars previously written to a BarStore.
type StoreProvider struct {
	bars   store.BarStore
	market string
}

// NewStoreProvider reads from bars under market.
func NewStoreProvider(bars store.BarStore, market string) *StoreProvider {
	return &StoreProvider{bars: bars, market: market}
}

func (p *StoreProvider) Name() string { return "store" }

// Bars reads symbol's stored bars in [start, end].
func (p *StoreProvider) Bars(ctx context.Context, symbol string, start, end time.Time) (domain.Series, error) {
	bars, err := p.bars.ReadBars(ctx, strings.ToUpper(symbol), p.market, start, end)
	if err != nil {
		return nil, fmt.Errorf("reading stored bars for %s: %w", symbol, err)
	}
	return normalize(bars), nil
}
